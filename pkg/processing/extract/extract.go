package extract

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

// Method reports which strategy found the JSON value.
type Method string

const (
	MethodWhole  Method = "whole"
	MethodFenced Method = "fenced"
	MethodBraces Method = "braces"
)

// ErrNoJSON is returned when the text contains no parseable JSON value.
var ErrNoJSON = errors.New("no JSON found in text")

var errTrailingData = errors.New("trailing data after JSON value")

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	codeBlock  = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)```")
)

// CodeBlock is a fenced code block.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// JSON decodes the first JSON value it can find in text. Numbers are kept
// as json.Number so they survive a round trip unchanged.
func JSON(text string) (any, Method, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, "", ErrNoJSON
	}

	if v, err := decode(trimmed); err == nil {
		return v, MethodWhole, nil
	}

	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		if v, err := decode(m[1]); err == nil {
			return v, MethodFenced, nil
		}
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		if v, err := decode(trimmed[start : end+1]); err == nil {
			return v, MethodBraces, nil
		}
	}

	return nil, "", ErrNoJSON
}

// decode parses exactly one JSON value; trailing data is an error.
func decode(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}

// CodeBlocks returns every fenced block in text in order. Blocks without a
// language tag are reported as "plaintext"; code is trimmed.
func CodeBlocks(text string) []CodeBlock {
	matches := codeBlock.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	blocks := make([]CodeBlock, 0, len(matches))
	for _, m := range matches {
		lang := m[1]
		if lang == "" {
			lang = "plaintext"
		}
		blocks = append(blocks, CodeBlock{Language: lang, Code: strings.TrimSpace(m[2])})
	}
	return blocks
}

// StripCodeBlocks removes every fenced block and trims the remainder.
func StripCodeBlocks(text string) string {
	return strings.TrimSpace(anyFence.ReplaceAllString(text, ""))
}

var anyFence = regexp.MustCompile("(?s)```.*?```")
