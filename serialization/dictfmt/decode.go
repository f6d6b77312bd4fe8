package dictfmt

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// DecodeStruct copies d onto the struct pointed to by out. Fields are matched by
// their `dict` tag, falling back to the field name; numeric types convert weakly.
func DecodeStruct(d *Dictionary, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "dict",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "creating struct decoder")
	}
	return errors.Wrap(dec.Decode(d.ToMap()), "decoding dictionary")
}
