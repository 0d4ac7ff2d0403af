// Package textutil provides pure text normalization helpers: accent
// folding, tokenization, slugs, fingerprints and similarity. All
// functions are stateless and safe for concurrent use.
package textutil

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticalMap covers letters that unicode decomposition leaves
// untouched, e.g. ø and ß.
// Reference: https://docs.oracle.com/cd/E29584_01/webhelp/mdex_basicDev/src/rbdv_chars_mapping.html
var diacriticalMap = map[rune]rune{
	'Æ': 'A',
	'Đ': 'D',
	'đ': 'd',
	'ø': 'o',
	'Ð': 'D',
	'Ø': 'O',
	'þ': 'P',
	'Þ': 'p',
	'ß': 's',
	'ð': 'd',
	'æ': 'a',
	'Ħ': 'H',
	'ħ': 'h',
	'ı': 'i',
	'Ĳ': 'I',
	'ĳ': 'i',
	'ĸ': 'K',
	'Ŀ': 'L',
	'ŀ': 'l',
	'Ł': 'L',
	'ł': 'l',
	'Ŋ': 'N',
	'ŋ': 'n',
	'ŉ': 'n',
	'Œ': 'O',
	'œ': 'o',
	'ſ': 's',
	'Ŧ': 'T',
	'ŧ': 't',
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Fold strips accents from text, e.g. ü => u, é => e. Letters that
// decomposition cannot handle go through the diacritical map.
func Fold(text string) string {
	folded, _, err := transform.String(foldTransformer, text)
	if err != nil {
		folded = text
	}
	return strings.Map(func(r rune) rune {
		if mapped, ok := diacriticalMap[r]; ok {
			return mapped
		}
		return r
	}, folded)
}

// Options tunes tokenization. The zero value folds nothing, lowercases
// every token and keeps all of them.
type Options struct {
	// Fold strips accents before splitting.
	Fold bool

	// KeepCase preserves the original casing; tokens are lowercased
	// otherwise.
	KeepCase bool

	// StopWords are dropped from the token stream.
	StopWords map[string]bool

	// Synonyms replaces a token with its mapped form when present.
	Synonyms map[string]string

	// MaxWords caps the number of tokens returned. Zero means no cap.
	MaxWords int
}

// Tokenize splits text into tokens on runs of non-word runes, applying
// folding, casing, stop words and synonyms per opts.
func Tokenize(text string, opts Options) []string {
	if opts.Fold {
		text = Fold(text)
	}
	if !opts.KeepCase {
		text = strings.ToLower(text)
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := make([]string, 0, len(fields))
	for _, token := range fields {
		if opts.StopWords[token] {
			continue
		}
		if synonym := opts.Synonyms[token]; synonym != "" {
			token = synonym
		}
		tokens = append(tokens, token)
		if opts.MaxWords > 0 && len(tokens) >= opts.MaxWords {
			break
		}
	}
	return tokens
}

// Normalize removes blacklisted patterns from text, tokenizes what is
// left and joins the tokens with delimiter.
func Normalize(text string, blacklist []string, delimiter string, opts Options) (string, error) {
	if len(blacklist) > 0 {
		pattern, err := regexp.Compile("(" + strings.Join(blacklist, "|") + ")")
		if err != nil {
			return "", errors.WithMessage(err, "invalid blacklist pattern")
		}
		text = pattern.ReplaceAllString(text, " ")
	}
	return strings.Join(Tokenize(text, opts), delimiter), nil
}

// Slug renders text as a lowercase folded identifier joined with "-".
func Slug(text string) string {
	return strings.Join(Tokenize(text, Options{Fold: true}), "-")
}

// Fingerprint returns an order-independent signature of the text's
// token set, used for approximate deduplication. Two texts with the
// same tokens in any order share one fingerprint.
func Fingerprint(text string) string {
	tokens := Tokenize(text, Options{Fold: true})

	seen := make(map[string]bool, len(tokens))
	unique := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !seen[token] {
			seen[token] = true
			unique = append(unique, token)
		}
	}

	sort.Strings(unique)
	return strings.Join(unique, "_")
}

// ConcatTokens joins the text's tokens without a separator.
func ConcatTokens(text string, opts Options) string {
	return strings.Join(Tokenize(text, opts), "")
}

// Jaccard computes the Jaccard similarity of two texts' token sets,
// between 0 and 1. Empty inputs score 0.
func Jaccard(text1, text2 string, opts Options) float64 {
	if text1 == "" || text2 == "" {
		return 0
	}

	s1 := tokenSet(text1, opts)
	s2 := tokenSet(text2, opts)

	overlap := 0
	for token := range s1 {
		if s2[token] {
			overlap++
		}
	}

	union := len(s1) + len(s2) - overlap
	if union == 0 {
		return 0
	}
	return float64(overlap) / float64(union)
}

func tokenSet(text string, opts Options) map[string]bool {
	set := make(map[string]bool)
	for _, token := range Tokenize(text, opts) {
		set[token] = true
	}
	return set
}

var safeEncodingPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// IsSafeEncoding reports whether s contains only ASCII letters, digits
// and underscores.
func IsSafeEncoding(s string) bool {
	return safeEncodingPattern.MatchString(s)
}

// CleanHTML strips tags from an HTML fragment, keeping only its text
// content. Script and style bodies are dropped.
func CleanHTML(raw string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(raw))

	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		}
	}
}
