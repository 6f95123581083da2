package sentiment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MinPolarity = -5
	MaxPolarity = 5
)

// Lexicon maps lowercase words to a signed polarity weight.
type Lexicon map[string]int

// Polarity returns the weight of word, or 0 when the word is unknown.
func (l Lexicon) Polarity(word string) int {
	return l[word]
}

// Fingerprint is a stable digest of the word list. Equal lexicons give equal
// fingerprints regardless of map order.
func (l Lexicon) Fingerprint() string {
	words := make([]string, 0, len(l))
	for w := range l {
		words = append(words, w)
	}
	sort.Strings(words)

	h := sha256.New()
	for _, w := range words {
		h.Write([]byte(w))
		h.Write([]byte{'='})
		h.Write([]byte(strconv.Itoa(l[w])))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LoadLexicon reads a YAML mapping of word to polarity from path.
func LoadLexicon(path string) (Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return ParseLexicon(f)
}

// ParseLexicon decodes a YAML word list. Keys are lowercased; weights outside
// [MinPolarity, MaxPolarity] are rejected.
func ParseLexicon(r io.Reader) (Lexicon, error) {
	raw := map[string]int{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	lex := make(Lexicon, len(raw))
	for word, weight := range raw {
		if weight < MinPolarity || weight > MaxPolarity {
			return nil, fmt.Errorf("lexicon word %q: polarity %d out of range", word, weight)
		}
		w := strings.ToLower(strings.TrimSpace(word))
		if w == "" {
			continue
		}
		lex[w] = weight
	}
	return lex, nil
}

// DefaultLexicon returns a copy of the built-in AFINN-style word list.
func DefaultLexicon() Lexicon {
	lex := make(Lexicon, len(defaultWords))
	for w, p := range defaultWords {
		lex[w] = p
	}
	return lex
}

var defaultWords = map[string]int{
	"abandon": -2, "abuse": -3, "accept": 1, "admire": 3, "adore": 3,
	"afraid": -2, "agree": 1, "amazing": 4, "angry": -3, "annoy": -2,
	"annoyed": -2, "annoying": -2, "anxious": -2, "appreciate": 2, "awesome": 4,
	"awful": -3, "bad": -3, "beautiful": 3, "best": 3, "better": 2,
	"bless": 2, "bored": -2, "boring": -3, "brilliant": 4, "broken": -1,
	"calm": 2, "care": 2, "cheer": 2, "clean": 2, "cool": 1,
	"crap": -3, "crash": -2, "cry": -1, "cute": 2, "damn": -4,
	"dead": -3, "delight": 3, "delighted": 3, "disappoint": -2, "disappointed": -2,
	"disappointing": -2, "disaster": -2, "dislike": -2, "dumb": -3, "easy": 1,
	"enjoy": 2, "excellent": 3, "excited": 3, "exciting": 3, "fail": -2,
	"failed": -2, "failure": -2, "fantastic": 4, "fear": -2, "fine": 2,
	"fraud": -4, "fun": 4, "funny": 4, "gain": 2, "glad": 3,
	"good": 3, "great": 3, "happy": 3, "harm": -2, "hate": -3,
	"hated": -3, "hates": -3, "help": 2, "helpful": 2, "hope": 2,
	"horrible": -3, "hurt": -2, "ill": -2, "impressive": 3, "improve": 2,
	"interesting": 2, "joy": 3, "kill": -3, "kind": 2, "lame": -2,
	"like": 2, "liked": 2, "lose": -3, "loss": -3, "lost": -3,
	"love": 3, "loved": 3, "lovely": 3, "loves": 3, "mad": -3,
	"mess": -2, "miss": -2, "nice": 3, "no": -1, "ok": 2,
	"pain": -2, "perfect": 3, "pleased": 3, "poor": -2,
	"positive": 2, "problem": -2, "profit": 2, "rally": 2, "recommend": 2,
	"regret": -2, "rich": 2, "sad": -2, "safe": 1, "scam": -2,
	"scared": -2, "shame": -2, "slow": -2, "smile": 2, "sorry": -1,
	"strong": 2, "stupid": -2, "success": 2, "successful": 3, "suck": -3,
	"sucks": -3, "super": 3, "terrible": -3, "thank": 2, "thanks": 2,
	"thrilled": 5, "trouble": -2, "ugly": -3, "unhappy": -2, "upset": -2,
	"useful": 2, "useless": -2, "weak": -2, "win": 4, "wonderful": 4,
	"worried": -3, "worse": -3, "worst": -3, "wow": 4, "wrong": -2,
	"yes": 1,
}
