package thriftrec

import (
	"reflect"
	"strconv"
	"strings"
)

// fieldTag is the metadata resolved from a struct field's tags.
type fieldTag struct {
	name     string
	id       int16
	required bool
	optional bool
	aliases  []string
}

// resolveTag reads `thrift:"name,id[,required|optional]"` and the optional
// `natcodec:"name=...,alias=a|b"` override. Priority for the external name:
// natcodec name= > thrift name. A natcodec tag of "-" disables the field, as
// does a missing thrift tag. A json tag name differing from the result is
// accepted as an alias.
func resolveTag(sf reflect.StructField) (fieldTag, bool) {
	tt, ok := sf.Tag.Lookup("thrift")
	if !ok || !sf.IsExported() {
		return fieldTag{}, false
	}
	var ft fieldTag
	parts := strings.Split(tt, ",")
	ft.name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		if id, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 16); err == nil {
			ft.id = int16(id)
		}
	}
	for i := 2; i < len(parts); i++ {
		switch strings.TrimSpace(parts[i]) {
		case "required":
			ft.required = true
		case "optional":
			ft.optional = true
		}
	}
	if nt := sf.Tag.Get("natcodec"); nt != "" {
		if nt == "-" {
			return fieldTag{}, false
		}
		for _, p := range strings.Split(nt, ",") {
			p = strings.TrimSpace(p)
			switch {
			case strings.HasPrefix(p, "name="):
				ft.name = strings.TrimPrefix(p, "name=")
			case strings.HasPrefix(p, "alias="):
				for _, a := range strings.Split(strings.TrimPrefix(p, "alias="), "|") {
					if a = strings.TrimSpace(a); a != "" {
						ft.aliases = append(ft.aliases, a)
					}
				}
			}
		}
	}
	if ft.name == "" {
		ft.name = sf.Name
	}
	if jt := sf.Tag.Get("json"); jt != "" && jt != "-" {
		if i := strings.IndexByte(jt, ','); i >= 0 {
			jt = jt[:i]
		}
		if jt != "" && jt != ft.name {
			ft.aliases = append(ft.aliases, jt)
		}
	}
	return ft, true
}
