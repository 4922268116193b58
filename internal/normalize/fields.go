// Package normalize maps loosely typed vendor items onto canonical entities and
// upserts them by natural key.
package normalize

import (
	"strings"

	"github.com/tidwall/gjson"
)

// fieldPath is an ordered list of gjson paths for one logical attribute,
// highest priority first. The first present value wins; null, empty strings
// and missing keys fall through to the next path.
type fieldPath []string

func (f fieldPath) result(item gjson.Result) (gjson.Result, bool) {
	for _, path := range f {
		r := item.Get(path)
		if !r.Exists() || r.Type == gjson.Null {
			continue
		}
		if r.Type == gjson.String && strings.TrimSpace(r.Str) == "" {
			continue
		}
		return r, true
	}
	return gjson.Result{}, false
}

func (f fieldPath) str(item gjson.Result) *string {
	r, ok := f.result(item)
	if !ok {
		return nil
	}
	v := strings.TrimSpace(r.String())
	if v == "" {
		return nil
	}
	return &v
}

// count returns the first path holding a positive number, mirroring how vendors
// report zero in one field and the real value in another.
func (f fieldPath) count(item gjson.Result) int {
	for _, path := range f {
		r := item.Get(path)
		if r.Type == gjson.Number && r.Int() > 0 {
			return int(r.Int())
		}
		if r.Type == gjson.String {
			if n := leadingInt(r.Str); n > 0 {
				return n
			}
		}
	}
	return 0
}

// array returns the first path holding a JSON array.
func (f fieldPath) array(item gjson.Result) []gjson.Result {
	for _, path := range f {
		if r := item.Get(path); r.IsArray() {
			return r.Array()
		}
	}
	return nil
}

// stringList returns the first non-empty array of strings.
func (f fieldPath) stringList(item gjson.Result) []string {
	for _, path := range f {
		r := item.Get(path)
		if !r.IsArray() {
			continue
		}
		var out []string
		for _, v := range r.Array() {
			if s := strings.TrimSpace(v.String()); s != "" {
				out = append(out, strings.ToLower(s))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func leadingInt(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
