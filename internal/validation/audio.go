package validation

import (
	"bytes"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// AllowedAudioExtensions lists the upload extensions ffmpeg is trusted with.
var AllowedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".flac": true,
	".opus": true,
}

// AudioUpload checks size, extension and content signature of the upload
// sent in field. A nil header means nothing was sent.
func AudioUpload(header *multipart.FileHeader, field string, maxSize int64) *Report {
	r := &Report{}
	if header == nil {
		return r.add(field, "No file provided")
	}

	if maxSize > 0 && header.Size > maxSize {
		r.add(field, "File exceeds the maximum size of %d MB", maxSize/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !AllowedAudioExtensions[ext] {
		return r.add(field, "Unsupported file type %q; allowed: wav, mp3, m4a, aac, ogg, flac, opus", ext)
	}

	file, err := header.Open()
	if err != nil {
		return r.add(field, "Failed to open file: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if DetectAudioContentType(file) == "" {
		r.add(field, "File content is not a recognised audio format")
	}
	return r
}

// DetectAudioContentType sniffs the first bytes of an audio stream. It
// returns "" when the signature is unknown.
func DetectAudioContentType(reader io.Reader) string {
	head := make([]byte, 16)
	n, _ := io.ReadFull(reader, head)
	data := head[:n]
	if len(data) < 4 {
		return ""
	}

	switch {
	case bytes.HasPrefix(data, []byte("RIFF")) && len(data) >= 12 && string(data[8:12]) == "WAVE":
		return "audio/wav"
	case bytes.HasPrefix(data, []byte("ID3")), data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "audio/mpeg"
	case bytes.HasPrefix(data, []byte("OggS")):
		return "audio/ogg"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return "audio/flac"
	case len(data) >= 12 && string(data[4:8]) == "ftyp":
		switch string(data[8:12]) {
		case "M4A ", "mp42", "isom", "M4B ":
			return "audio/mp4"
		}
	}
	return ""
}

// SanitizeFilename reduces a client-supplied filename to a safe base name.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, filename)
	if filename == "" || filename == "." {
		return "upload"
	}
	return filename
}

