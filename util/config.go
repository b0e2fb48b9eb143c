package util

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"
)

// LoadConfig sets the fields of the struct pointed to by c from the env vars
// prefix + upper cased field name. Strings are taken as is, everything else is
// json. Missing vars keep the current value unless the field is tagged
// `env:"required"`.
func LoadConfig(prefix string, c any) error {
	rt, rc := reflect.TypeOf(c).Elem(), reflect.ValueOf(c).Elem()
	for i := 0; i < rt.NumField(); i++ {
		rft := rt.Field(i)
		if !rft.IsExported() {
			continue
		}
		k := prefix + strings.ToUpper(rft.Name)
		s, ok := os.LookupEnv(k)
		if !ok && rft.Tag.Get("env") == "required" && rc.Field(i).IsZero() {
			return fmt.Errorf("failed to lookup field %q in env (%s)", rft.Name, k)
		} else if !ok {
			continue
		}
		if rft.Type.Kind() == reflect.String {
			rc.Field(i).SetString(s)
		} else if err := json.Unmarshal([]byte(s), rc.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("failed to unmarshal %q(%s) from %q", k, rft.Type, s)
		}
	}
	return nil
}
