// Package content turns deck files into words: parsing, stable content
// hashing, a read-through deck cache, and reconciliation of local and
// git sources against the database.
package content

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/sidneypayan/linguami-srs/internal/domain"
)

// Deck files hold one word per block:
//
//	F: the term in the target language
//	B: its translation
//	E: an optional example sentence
//
// Blocks are separated by "---" or by the next F: line. Field bodies
// may span multiple lines.
const (
	frontPrefix   = "F:"
	backPrefix    = "B:"
	examplePrefix = "E:"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingExample
)

// ParseFile reads a deck file from the given path and extracts all words.
func ParseFile(path string) ([]domain.Word, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all words. Language, deck
// and hash are left empty; the caller fills them from the file's
// location and content.
func Parse(r io.Reader) ([]domain.Word, error) {
	scanner := bufio.NewScanner(r)
	var words []domain.Word
	var current domain.Word
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		body := strings.Join(block, "\n")
		switch currentState {
		case readingFront:
			current.Front = body
		case readingBack:
			current.Back = body
		case readingExample:
			current.Example = body
		}
		block = nil
	}

	finishWord := func() {
		flushBlock()
		if current.Front != "" && current.Back != "" {
			words = append(words, current)
		}
		current = domain.Word{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishWord()
			continue
		}

		var prefix string
		var next state
		switch {
		case strings.HasPrefix(line, frontPrefix):
			prefix, next = frontPrefix, readingFront
		case strings.HasPrefix(line, backPrefix):
			prefix, next = backPrefix, readingBack
		case strings.HasPrefix(line, examplePrefix):
			prefix, next = examplePrefix, readingExample
		}

		if prefix != "" {
			if next == readingFront && currentState != seeking {
				// A new front always starts a new word.
				finishWord()
			} else {
				flushBlock()
			}
			currentState = next
			body := strings.TrimPrefix(line, prefix)
			body = strings.TrimPrefix(body, " ")
			block = append(block, body)
			continue
		}

		if currentState != seeking {
			block = append(block, line)
		}
	}

	finishWord() // Finish the very last word in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return words, nil
}
