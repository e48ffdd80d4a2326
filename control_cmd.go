package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charmbracelet/readaloud/internal/bus"
	"github.com/charmbracelet/readaloud/internal/chunk"
	"github.com/charmbracelet/readaloud/internal/extract"
	"github.com/charmbracelet/readaloud/internal/protocol"
	"github.com/charmbracelet/readaloud/internal/settings"
	"github.com/charmbracelet/readaloud/internal/tts"
	"github.com/charmbracelet/readaloud/ui"
)

// readTimeout covers text extraction and synthesis of the first chunk.
const readTimeout = 2 * time.Minute

// errBusDown is returned once the connection to the message bus is lost.
var errBusDown = errors.New("lost the connection to the message bus")

// daemon is a client connection to `readaloud serve`.
type daemon struct {
	client *bus.Client
}

func connectDaemon(ctx context.Context) (*daemon, error) {
	client, err := bus.Connect(ctx, opts.busAddress(), "readaloud-cli", log.Default())
	if err != nil {
		return nil, fmt.Errorf("%w (is %s running?)", err, keyword("readaloud serve"))
	}
	return &daemon{client: client}, nil
}

func (d *daemon) call(ctx context.Context, kind protocol.Kind, payload interface{}) (protocol.Response, error) {
	if !d.client.Healthy() {
		return protocol.Response{}, errBusDown
	}
	req, err := protocol.NewRequest(kind, payload)
	if err != nil {
		return protocol.Response{}, err
	}
	resp, err := d.client.Request(ctx, bus.SubjectController, req)
	if errors.Is(err, bus.ErrNoResponders) {
		return protocol.Response{}, fmt.Errorf("the daemon is not running: start it with %s", keyword("readaloud serve"))
	}
	if err != nil {
		return protocol.Response{}, err
	}
	return resp, resp.Err()
}

func (d *daemon) Close() {
	d.client.Close()
}

// callDaemon connects, sends one request and disconnects.
func callDaemon(ctx context.Context, timeout time.Duration, kind protocol.Kind, payload interface{}) (protocol.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d, err := connectDaemon(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	defer d.Close()
	return d.call(ctx, kind, payload)
}

var (
	readProvider  string
	readVoice     string
	readSelection string
	readClipboard bool
	readDryRun    bool

	readCmd = &cobra.Command{
		Use:   "read [SOURCE]",
		Short: "Read a page aloud",
		Long: paragraph(fmt.Sprintf(
			"\n%s a web page, a local HTML, Markdown or text file, standard input or the clipboard. A new read replaces the one in progress.",
			keyword("Read aloud"),
		)),
		Example: paragraph("readaloud read https://go.dev/blog/\nreadaloud read notes.md --provider webspeech\ncat article.txt | readaloud read\nreadaloud read --clipboard --voice nova"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runRead,
	}

	pauseCmd = &cobra.Command{
		Use:   "pause",
		Short: "Pause reading",
		Args:  cobra.NoArgs,
		RunE:  simpleControl(protocol.KindPause, "Paused"),
	}

	resumeCmd = &cobra.Command{
		Use:   "resume",
		Short: "Resume reading",
		Args:  cobra.NoArgs,
		RunE:  simpleControl(protocol.KindResume, "Resumed"),
	}

	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop reading and drop the rest of the page",
		Args:  cobra.NoArgs,
		RunE:  simpleControl(protocol.KindStop, "Stopped"),
	}
)

func init() {
	readCmd.Flags().StringVarP(&readProvider, "provider", "p", "", "speech provider for this read (openai or webspeech)")
	readCmd.Flags().StringVarP(&readVoice, "voice", "v", "", "voice for this read")
	readCmd.Flags().StringVarP(&readSelection, "selection", "s", "", "read this text instead of a page")
	readCmd.Flags().BoolVarP(&readClipboard, "clipboard", "c", false, "read the clipboard contents")
	readCmd.Flags().BoolVar(&readDryRun, "dry-run", false, "print the chunks instead of reading them")
}

func simpleControl(kind protocol.Kind, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if _, err := callDaemon(cmd.Context(), opts.EngineRequestTimeout+opts.EngineReadyTimeout, kind, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), done)
		return nil
	}
}

func runRead(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if _, err := tts.ParseProvider(readProvider); err != nil {
		return err
	}
	if hint, ok := settings.SuggestVoice(readVoice); ok {
		log.Warn("Unknown voice", "voice", readVoice, "did you mean", hint)
	}

	payload, err := readPayload(ctx, cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	if readDryRun {
		return printChunks(ctx, cmd.OutOrStdout(), payload)
	}

	resp, err := callDaemon(ctx, readTimeout, protocol.KindReadCurrentPage, payload)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reading with %s %s\n", keyword(resp.Provider), faint(chunkCount(resp.Chunks)))
	return nil
}

// readPayload decides what the daemon reads. URLs are fetched by the daemon;
// files, stdin and the clipboard are read here.
func readPayload(ctx context.Context, stdin io.Reader, args []string) (protocol.ReadPayload, error) {
	p := protocol.ReadPayload{
		Provider:  readProvider,
		Voice:     readVoice,
		Selection: strings.TrimSpace(readSelection),
	}

	switch {
	case p.Selection != "":
		return p, nil

	case readClipboard:
		text, err := clipboard.ReadAll()
		if err != nil {
			return p, fmt.Errorf("unable to read clipboard: %w", err)
		}
		p.Selection = strings.TrimSpace(text)
		if p.Selection == "" {
			return p, tts.NewTTSError(tts.ErrorCodeNoTarget, "the clipboard is empty", tts.ErrNoTarget)
		}
		return p, nil

	case len(args) == 1 && isURL(args[0]):
		p.Source = args[0]
		return p, nil
	}

	source := extract.StdinSource
	if len(args) == 1 {
		source = args[0]
	} else if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec
		return p, tts.ErrNoTarget
	}

	ex := extract.New(log.Default())
	ex.Stdin = stdin
	text, err := ex.Extract(ctx, source)
	if err != nil {
		return p, err
	}
	p.Selection = text
	return p, nil
}

func isURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func printChunks(ctx context.Context, w io.Writer, p protocol.ReadPayload) error {
	text := p.Selection
	if text == "" {
		var err error
		if text, err = extract.New(log.Default()).Extract(ctx, p.Source); err != nil {
			return err
		}
	}
	chunks := chunk.Chunk(text, opts.MaxChunkLen)
	if len(chunks) == 0 {
		return tts.ErrNoText
	}

	width := terminalWidth()
	for i, c := range chunks {
		header := keyword(fmt.Sprintf("#%d", i+1)) + " " + faint(fmt.Sprintf("%d chars", len([]rune(c))))
		fmt.Fprintln(w, header)
		fmt.Fprintln(w, indent.String(wordwrap.String(c, width-2), 2))
		fmt.Fprintln(w)
	}

	estimate := time.Duration(chunk.EstimateSeconds(chunk.WordCount(text)) * float64(time.Second))
	fmt.Fprintf(w, "%s, about %s of speech\n", chunkCount(len(chunks)), ui.FormatDuration(estimate))
	return nil
}

func chunkCount(n int) string {
	if n == 1 {
		return "1 chunk"
	}
	return fmt.Sprintf("%d chunks", n)
}

func terminalWidth() int {
	width := 80
	if term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil { //nolint:gosec
			width = w
		}
	}
	return min(max(width, 20), 120)
}
