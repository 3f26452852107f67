// pkg/proxmox/flex.go

package proxmox

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// FlexInt decodes integers that pvesh may print as numbers or strings
type FlexInt int64

func (i *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*i = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*i = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*i = FlexInt(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid integer %q", s)
	}
	*i = FlexInt(f)
	return nil
}

// FlexBool decodes 0/1, "0"/"1" and true/false
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	v, err := parseBool(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*f = FlexBool(v)
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, errors.Newf("invalid boolean %q", s)
}

// IDList decodes a vmid list given as "100,101", a single number or an array
type IDList []int

func (l *IDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}

	var raw []json.RawMessage
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return errors.Wrap(err, "invalid id list")
		}
	} else {
		for _, part := range strings.Split(strings.Trim(string(b), `"`), ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			raw = append(raw, json.RawMessage(strings.TrimSpace(part)))
		}
	}

	ids := make(IDList, 0, len(raw))
	for _, r := range raw {
		var id FlexInt
		if err := id.UnmarshalJSON(r); err != nil {
			return err
		}
		ids = append(ids, int(id))
	}
	*l = ids
	return nil
}

// Contains reports whether id is in the list
func (l IDList) Contains(id int) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// StringList decodes "mon,wed" or ["mon","wed"]
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if len(b) > 0 && b[0] == '[' {
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return errors.Wrap(err, "invalid string list")
		}
		*l = items
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, "invalid string list")
	}
	var items StringList
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	*l = items
	return nil
}
