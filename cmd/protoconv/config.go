package main

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/anirudhraja/protoserial/serialization"
)

// config holds the conversion settings. A TOML file supplies a base that explicit
// flags override.
type config struct {
	Protos          []string `toml:"protos"`
	ImportPaths     []string `toml:"import_paths"`
	Type            string   `toml:"type"`
	From            string   `toml:"from"`
	To              string   `toml:"to"`
	MaxDepth        int      `toml:"max_depth"`
	Pretty          bool     `toml:"pretty"`
	EnumsAsNumbers  bool     `toml:"enums_as_numbers"`
	XMLRoot         string   `toml:"xml_root"`
	XMLEnumValues   bool     `toml:"xml_enum_values"`
	XMLNestedArrays bool     `toml:"xml_nested_arrays"`
	XMLJSONTypes    bool     `toml:"xml_json_types"`
	Verbose         bool     `toml:"verbose"`

	// In and Out are only settable from the command line.
	In  string `toml:"-"`
	Out string `toml:"-"`
}

func defaultConfig() config {
	return config{
		From:     "json",
		To:       "binary",
		MaxDepth: serialization.DefaultOptions().MaxDepth,
	}
}

// loadConfigFile overlays the keys present in a TOML file onto cfg.
func loadConfigFile(path string, cfg *config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrapf(err, "load config %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := lo.Map(undecoded, func(k toml.Key, _ int) string { return k.String() })
		return errors.Newf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func parseArgs(args []string) (config, error) {
	var flags config
	fs := pflag.NewFlagSet("protoconv", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "TOML file with default settings")
	fs.StringSliceVarP(&flags.Protos, "proto", "p", nil, ".proto file or directory to load (repeatable)")
	fs.StringSliceVarP(&flags.ImportPaths, "import-path", "I", nil, "directory searched for imports (repeatable)")
	fs.StringVarP(&flags.Type, "type", "t", "", "fully qualified message type")
	fs.StringVarP(&flags.From, "from", "f", "", "input format: binary, json or xml")
	fs.StringVar(&flags.To, "to", "", "output format: binary, json, xml or dict")
	fs.StringVarP(&flags.In, "in", "i", "", "input file (default stdin)")
	fs.StringVarP(&flags.Out, "out", "o", "", "output file (default stdout)")
	fs.IntVar(&flags.MaxDepth, "max-depth", 0, "maximum message nesting depth")
	fs.BoolVar(&flags.Pretty, "pretty", false, "indent JSON and XML output")
	fs.BoolVar(&flags.EnumsAsNumbers, "enums-as-numbers", false, "write JSON enums by number")
	fs.StringVar(&flags.XMLRoot, "xml-root", "", "XML root element name")
	fs.BoolVar(&flags.XMLEnumValues, "xml-enum-values", false, "add value attributes to XML enums")
	fs.BoolVar(&flags.XMLNestedArrays, "xml-nested-arrays", false, "wrap XML repeated fields in a container element")
	fs.BoolVar(&flags.XMLJSONTypes, "xml-json-types", false, "add JSON type attributes to XML (implies --xml-nested-arrays)")
	fs.BoolVarP(&flags.Verbose, "verbose", "v", false, "development logging at debug level")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			return config{}, err
		}
	}
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "proto":
			cfg.Protos = flags.Protos
		case "import-path":
			cfg.ImportPaths = flags.ImportPaths
		case "type":
			cfg.Type = flags.Type
		case "from":
			cfg.From = flags.From
		case "to":
			cfg.To = flags.To
		case "max-depth":
			cfg.MaxDepth = flags.MaxDepth
		case "pretty":
			cfg.Pretty = flags.Pretty
		case "enums-as-numbers":
			cfg.EnumsAsNumbers = flags.EnumsAsNumbers
		case "xml-root":
			cfg.XMLRoot = flags.XMLRoot
		case "xml-enum-values":
			cfg.XMLEnumValues = flags.XMLEnumValues
		case "xml-nested-arrays":
			cfg.XMLNestedArrays = flags.XMLNestedArrays
		case "xml-json-types":
			cfg.XMLJSONTypes = flags.XMLJSONTypes
		case "verbose":
			cfg.Verbose = flags.Verbose
		}
	})
	cfg.In, cfg.Out = flags.In, flags.Out
	if cfg.XMLJSONTypes {
		cfg.XMLNestedArrays = true
	}
	return cfg, cfg.validate()
}

func (c config) validate() error {
	if c.Type == "" {
		return errors.New("--type is required")
	}
	if len(c.Protos) == 0 {
		return errors.New("at least one --proto is required")
	}
	if _, err := contentTypeFor(c.From); err != nil {
		return errors.Wrap(err, "--from")
	}
	if c.To != formatDict {
		if _, err := contentTypeFor(c.To); err != nil {
			return errors.Wrap(err, "--to")
		}
	}
	if c.MaxDepth < 0 {
		return errors.Newf("--max-depth must not be negative, got %d", c.MaxDepth)
	}
	return nil
}

const formatDict = "dict"

var formatNames = map[string]string{
	"binary": "application/x-protobuf",
	"pb":     "application/x-protobuf",
	"proto":  "application/x-protobuf",
	"json":   "application/json",
	"xml":    "application/xml",
}

// contentTypeFor maps a format name to its content type. Full content types pass
// through unchanged.
func contentTypeFor(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if ct, ok := formatNames[name]; ok {
		return ct, nil
	}
	if strings.Contains(name, "/") {
		return name, nil
	}
	return "", errors.Newf("unknown format %q", name)
}
