// Package extract turns a page, file or stdin into the plain text that is
// read aloud.
package extract
