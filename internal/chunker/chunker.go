// Package chunker splits long journal entries into pieces small enough for a
// single embedding request.
package chunker

import (
	"strings"
)

const (
	DefaultTargetSize = 800
	DefaultMaxSize    = 1200
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Chunk splits text into pieces. Text no longer than MaxSize comes back as a
// single piece. Longer text is split on blank lines; paragraphs over MaxSize
// are split into sentences, and sentences over TargetSize between words.
// Adjacent pieces are packed back together up to TargetSize.
func Chunk(text string, opts Options) []string {
	if opts.TargetSize == 0 {
		opts = DefaultOptions()
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}
	if len(text) <= opts.MaxSize {
		return []string{text}
	}

	var units []string
	for _, p := range paragraphs(text) {
		if len(p) <= opts.MaxSize {
			units = append(units, p)
			continue
		}
		units = append(units, pack(sentences(p, opts.TargetSize), " ", opts.TargetSize)...)
	}
	return pack(units, "\n\n", opts.TargetSize)
}

// paragraphs splits on blank lines and trims each line.
func paragraphs(text string) []string {
	var out, current []string
	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}

// sentences splits p after '.', '!' or '?' followed by whitespace.
func sentences(p string, max int) []string {
	var out []string
	start := 0
	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '.', '!', '?':
			if i+1 == len(p) || p[i+1] == ' ' || p[i+1] == '\n' {
				out = appendSentence(out, strings.TrimSpace(p[start:i+1]), max)
				start = i + 1
			}
		}
	}
	return appendSentence(out, strings.TrimSpace(p[start:]), max)
}

func appendSentence(out []string, s string, max int) []string {
	if s == "" {
		return out
	}
	if len(s) <= max {
		return append(out, s)
	}
	return append(out, pack(strings.Fields(s), " ", max)...)
}

// pack joins consecutive parts with sep while the result stays within
// target. A single part longer than target is kept as is.
func pack(parts []string, sep string, target int) []string {
	var out []string
	var cur string
	for _, p := range parts {
		if cur == "" {
			cur = p
			continue
		}
		if len(cur)+len(sep)+len(p) <= target {
			cur += sep + p
			continue
		}
		out = append(out, cur)
		cur = p
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}
