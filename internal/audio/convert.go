package audio

// Convert resamples p to rate and maps it to the given channel count.
// Resampling happens first so mono input is not resampled twice.
func Convert(p PCM, rate, channels int) PCM {
	out := p
	if out.SampleRate != rate {
		out = Resample(out, rate)
	}
	switch {
	case out.Channels == 1 && channels == 2:
		out = MonoToStereo(out)
	case out.Channels == 2 && channels == 1:
		out = StereoToMono(out)
	}
	return out
}

// Resample changes the sample rate using linear interpolation.
func Resample(p PCM, dstRate int) PCM {
	if p.SampleRate <= 0 || dstRate <= 0 || p.SampleRate == dstRate || p.Channels <= 0 {
		return p
	}

	srcFrames := p.Frames()
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(p.SampleRate))
	out := make([]int16, dstFrames*p.Channels)
	ratio := float64(p.SampleRate) / float64(dstRate)

	for i := 0; i < dstFrames; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		next := srcIdx + 1
		if next >= srcFrames {
			next = srcFrames - 1
		}

		for c := 0; c < p.Channels; c++ {
			s0 := float64(p.Samples[srcIdx*p.Channels+c])
			s1 := float64(p.Samples[next*p.Channels+c])
			out[i*p.Channels+c] = int16(s0*(1-frac) + s1*frac)
		}
	}

	return PCM{Samples: out, SampleRate: dstRate, Channels: p.Channels}
}

// MonoToStereo duplicates each mono sample into an L+R pair.
func MonoToStereo(p PCM) PCM {
	out := make([]int16, len(p.Samples)*2)
	for i, s := range p.Samples {
		out[i*2] = s
		out[i*2+1] = s
	}
	return PCM{Samples: out, SampleRate: p.SampleRate, Channels: 2}
}

// StereoToMono averages each L+R pair.
func StereoToMono(p PCM) PCM {
	frames := len(p.Samples) / 2
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		out[i] = int16((int32(p.Samples[i*2]) + int32(p.Samples[i*2+1])) / 2)
	}
	return PCM{Samples: out, SampleRate: p.SampleRate, Channels: 1}
}
