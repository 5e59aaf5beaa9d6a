// Package membership reads the metro to ZIP membership file that scopes a run.
package membership

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
)

const zipRule = "len=5,number"

// Membership maps metro names to the ZIP codes they cover.
type Membership struct {
	metros map[string][]string
}

// New builds a Membership from already normalized metro lists.
func New(metros map[string][]string) Membership {
	return Membership{metros: metros}
}

// Load reads and normalizes a membership file.
func Load(path string, logger ectologger.Logger) (Membership, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Membership{}, fmt.Errorf("failed to read membership file %s: %w", path, err)
	}
	return Parse(data, logger)
}

// Parse decodes a JSON object of metro name to ZIP list. ZIPs are trimmed
// and left padded with zeros to five digits; anything still not a five
// digit code is dropped with a warning.
func Parse(data []byte, logger ectologger.Logger) (Membership, error) {
	var raw map[string][]zipEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return Membership{}, fmt.Errorf("invalid membership file: %w", err)
	}

	validate := validator.New()
	metros := make(map[string][]string, len(raw))
	for metro, entries := range raw {
		zips := ectolinq.Map(entries, func(entry zipEntry) string {
			return normalizeZIP(string(entry))
		})

		valid := ectolinq.Filter(zips, func(zip string) bool {
			if err := validate.Var(zip, zipRule); err != nil {
				logger.WithFields(map[string]any{
					"metro": metro,
					"zip":   zip,
				}).Warn("Dropping invalid zip from membership file")
				return false
			}
			return true
		})

		metros[metro] = valid
	}

	return Membership{metros: metros}, nil
}

// zipEntry accepts a ZIP written as a string or a bare number.
type zipEntry string

func (z *zipEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*z = zipEntry(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*z = zipEntry(n.String())
	return nil
}

func normalizeZIP(zip string) string {
	zip = strings.TrimSpace(zip)
	if zip == "" || len(zip) >= 5 {
		return zip
	}
	for _, r := range zip {
		if r < '0' || r > '9' {
			return zip
		}
	}
	return strings.Repeat("0", 5-len(zip)) + zip
}

// ZIPs returns every member ZIP once, sorted.
func (m Membership) ZIPs() []string {
	seen := make(map[string]struct{})
	for _, zips := range m.metros {
		for _, zip := range zips {
			seen[zip] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for zip := range seen {
		out = append(out, zip)
	}
	sort.Strings(out)
	return out
}

// Metros returns the metro names, sorted.
func (m Membership) Metros() []string {
	out := make([]string, 0, len(m.metros))
	for metro := range m.metros {
		out = append(out, metro)
	}
	sort.Strings(out)
	return out
}

// Metro returns the ZIPs listed under one metro.
func (m Membership) Metro(name string) []string {
	return m.metros[name]
}
