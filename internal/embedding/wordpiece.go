package embedding

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxWordPieceChars = 100

// WordPieceTokenizer implements uncased BERT tokenization: basic cleanup and
// punctuation splitting followed by greedy longest-match-first wordpiece lookup.
type WordPieceTokenizer struct {
	vocab map[string]int64
	unkID int64
	clsID int64
	sepID int64
	padID int64
}

// LoadWordPieceTokenizer reads a vocab.txt file where the token on line N has id N.
func LoadWordPieceTokenizer(path string) (*WordPieceTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		token := strings.TrimRight(scanner.Text(), "\r")
		if token != "" {
			vocab[token] = id
		}
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return NewWordPieceTokenizer(vocab)
}

// NewWordPieceTokenizer builds a tokenizer from a token to id map. The map must contain
// [UNK], [CLS], [SEP] and [PAD].
func NewWordPieceTokenizer(vocab map[string]int64) (*WordPieceTokenizer, error) {
	t := &WordPieceTokenizer{vocab: vocab}
	for token, dst := range map[string]*int64{"[UNK]": &t.unkID, "[CLS]": &t.clsID, "[SEP]": &t.sepID, "[PAD]": &t.padID} {
		id, ok := vocab[token]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", token)
		}
		*dst = id
	}
	return t, nil
}

// Tokenize returns padded model inputs of length maxTokens.
func (t *WordPieceTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	pieces := t.Pieces(text)
	ids := make([]int64, len(pieces))
	for i, p := range pieces {
		if id, ok := t.vocab[p]; ok {
			ids[i] = id
		} else {
			ids[i] = t.unkID
		}
	}
	return packSequence(ids, maxTokens, t.clsID, t.sepID, t.padID)
}

// Pieces returns the wordpiece strings for text, without special tokens.
func (t *WordPieceTokenizer) Pieces(text string) []string {
	var out []string
	for _, word := range basicTokenize(text) {
		out = append(out, t.wordPieces(word)...)
	}
	return out
}

func (t *WordPieceTokenizer) wordPieces(word string) []string {
	chars := []rune(word)
	if len(chars) > maxWordPieceChars {
		return []string{"[UNK]"}
	}
	var pieces []string
	for start := 0; start < len(chars); {
		end := len(chars)
		cur := ""
		for start < end {
			sub := string(chars[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := t.vocab[sub]; ok {
				cur = sub
				break
			}
			end--
		}
		if cur == "" {
			return []string{"[UNK]"}
		}
		pieces = append(pieces, cur)
		start = end
	}
	return pieces
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// basicTokenize lowercases, strips accents, drops control characters and splits
// on whitespace, punctuation and CJK ideographs.
func basicTokenize(text string) []string {
	lowered := strings.ToLower(text)
	if s, _, err := transform.String(stripAccents, lowered); err == nil {
		lowered = s
	}

	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range lowered {
		switch {
		case r == 0 || r == unicode.ReplacementChar || (unicode.IsControl(r) && !unicode.IsSpace(r)):
			continue
		case unicode.IsSpace(r):
			flush()
		case isPunctuation(r) || isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}
