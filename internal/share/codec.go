// Package share turns a walk into a compact URL-safe token and back.
//
// A token carries only what a recipient needs to see the list: the walk's
// name and description and, per line, its name, weight, quantity, category,
// flags and comment. Ids, original item references and photos are dropped,
// and decoding assigns fresh ids.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/erazemk/trailpack/internal/model"
)

// MaxTokenLength bounds the tokens Decode will look at.
const MaxTokenLength = 64 << 10

// QueryParam is the URL query parameter carrying a token.
const QueryParam = "import"

var (
	// ErrMalformedToken is returned when a token cannot be decoded.
	ErrMalformedToken = errors.New("share: malformed token")
	// ErrEncode is returned when a walk cannot be encoded.
	ErrEncode = errors.New("share: cannot encode walk")
)

// now is replaced in tests.
var now = time.Now

type wireWalk struct {
	Name        string     `json:"n"`
	Description string     `json:"d"`
	Items       []wireLine `json:"i"`
}

type wireLine struct {
	Name         string `json:"n"`
	Weight       number `json:"w"`
	Qty          number `json:"q"`
	CategoryID   string `json:"c"`
	IsWorn       bit    `json:"o"`
	IsConsumable bit    `json:"x"`
	Flag         bit    `json:"f"`
	Comment      string `json:"m"`
	IsAdded      bit    `json:"a"`
	IsRemoved    bit    `json:"r"`
}

// Encode returns the token for w.
func Encode(w *model.Walk) (string, error) {
	if w == nil {
		return "", fmt.Errorf("%w: nil walk", ErrEncode)
	}
	if field := invalidText(w); field != "" {
		return "", fmt.Errorf("%w: invalid UTF-8 in %s", ErrEncode, field)
	}

	ww := wireWalk{
		Name:        w.Name,
		Description: w.Description,
		Items:       make([]wireLine, 0, len(w.Items)),
	}
	for _, l := range w.Items {
		ww.Items = append(ww.Items, wireLine{
			Name:         l.Name,
			Weight:       number(l.Weight),
			Qty:          number(l.Quantity()),
			CategoryID:   l.CategoryID,
			IsWorn:       bit(l.IsWorn),
			IsConsumable: bit(l.IsConsumable),
			Flag:         bit(l.Flag),
			Comment:      l.Comment,
			IsAdded:      bit(l.IsAdded),
			IsRemoved:    bit(l.IsRemoved),
		})
	}

	data, err := json.Marshal(ww)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// invalidText names the first text field of w that is not valid UTF-8.
// json.Marshal would silently replace the bad bytes.
func invalidText(w *model.Walk) string {
	switch {
	case !utf8.ValidString(w.Name):
		return "name"
	case !utf8.ValidString(w.Description):
		return "description"
	}
	for i, l := range w.Items {
		switch {
		case !utf8.ValidString(l.Name):
			return fmt.Sprintf("line %d name", i)
		case !utf8.ValidString(l.Comment):
			return fmt.Sprintf("line %d comment", i)
		case !utf8.ValidString(l.CategoryID):
			return fmt.Sprintf("line %d category", i)
		}
	}
	return ""
}

// Decode returns a new walk built from token. The walk and every line get
// fresh ids and the walk is dated now.
func Decode(token string) (*model.Walk, error) {
	payload, err := unwrap(token)
	if err != nil {
		return nil, err
	}

	var ww *wireWalk
	if err := json.Unmarshal(payload, &ww); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if ww == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedToken)
	}

	w := &model.Walk{
		ID:          uuid.NewString(),
		Name:        ww.Name,
		Description: ww.Description,
		Date:        model.FormatDate(now()),
		Items:       make([]model.WalkLine, 0, len(ww.Items)),
	}
	for _, wl := range ww.Items {
		line := model.WalkLine{
			ID:           uuid.NewString(),
			Name:         wl.Name,
			Weight:       model.Grams(wl.Weight),
			Qty:          int(math.Round(float64(wl.Qty))),
			CategoryID:   wl.CategoryID,
			IsWorn:       bool(wl.IsWorn),
			IsConsumable: bool(wl.IsConsumable),
			Flag:         bool(wl.Flag),
			Comment:      wl.Comment,
			IsAdded:      bool(wl.IsAdded),
			IsRemoved:    bool(wl.IsRemoved),
		}
		if line.Qty < 1 {
			line.Qty = 1
		}
		if line.CategoryID == "" {
			line.CategoryID = model.UncategorizedID
		}
		w.Items = append(w.Items, line)
	}
	return w, nil
}

// Link returns base with the token set as the import query parameter.
func Link(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	q := u.Query()
	q.Set(QueryParam, token)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}

// unwrap reverses the text encoding and returns the JSON payload. Besides
// current tokens it accepts the older form: standard base64 over
// percent-encoded JSON, where query parsing may have turned '+' into ' '.
func unwrap(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	if len(token) > MaxTokenLength {
		return nil, fmt.Errorf("%w: token too long", ErrMalformedToken)
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		legacy := strings.ReplaceAll(token, " ", "+")
		raw, err = base64.StdEncoding.DecodeString(legacy)
		if err != nil {
			raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(legacy, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '%' {
		unescaped, err := url.PathUnescape(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		raw = []byte(unescaped)
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("%w: payload is not an object", ErrMalformedToken)
	}
	return raw, nil
}

// bit is a flag written as 0 or 1. Decoding also accepts booleans.
type bit bool

func (b bit) MarshalJSON() ([]byte, error) {
	if b {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (b *bit) UnmarshalJSON(data []byte) error {
	switch s := string(bytes.TrimSpace(data)); s {
	case "null", "false", "0", `""`:
		*b = false
		return nil
	case "true":
		*b = true
		return nil
	}
	var n number
	if err := n.UnmarshalJSON(data); err != nil {
		return err
	}
	*b = n != 0
	return nil
}

// number is a JSON number that also decodes from numeric strings.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	var g model.Grams
	if err := g.UnmarshalJSON(data); err != nil {
		return err
	}
	*n = number(g)
	return nil
}
