package audio

// SampleRate represents audio sample rate in Hz
type SampleRate int

// Sample rates for audio processing.
const (
	// SampleRate44100 represents CD-quality audio at 44.1 kHz
	SampleRate44100 SampleRate = 44100
	// SampleRate48000 represents professional audio at 48 kHz
	SampleRate48000 SampleRate = 48000
)

// ChannelCount represents number of audio channels
type ChannelCount int

// Channel configurations.
const (
	// Mono represents single-channel audio
	Mono ChannelCount = 1
	// Stereo represents dual-channel audio
	Stereo ChannelCount = 2
)

// Codec represents the audio encoding format.
type Codec string

// Audio codecs for encoding.
const (
	// CodecPCM16LE is 16-bit signed little-endian PCM
	CodecPCM16LE Codec = "pcm_s16le"
)

// Format defines complete audio format specification.
type Format struct {
	SampleRate SampleRate
	Channels   ChannelCount
	Codec      Codec
}

// BytesPerSample is the width of one sample of one channel.
func (f Format) BytesPerSample() int {
	return 2
}

// BytesPerFrame is the width of one sample across all channels.
func (f Format) BytesPerFrame() int {
	return f.BytesPerSample() * int(f.Channels)
}

// BytesPerSecond is the PCM data rate.
func (f Format) BytesPerSecond() int {
	return f.BytesPerFrame() * int(f.SampleRate)
}

// PlaybackFormat is the stereo 16-bit format loops are decoded to and
// uploads are stored in.
func PlaybackFormat(rate int) Format {
	if rate <= 0 {
		rate = int(SampleRate48000)
	}
	return Format{
		SampleRate: SampleRate(rate),
		Channels:   Stereo,
		Codec:      CodecPCM16LE,
	}
}
