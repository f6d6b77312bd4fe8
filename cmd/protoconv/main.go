// Command protoconv converts messages between the protobuf binary format, JSON,
// XML and a dictionary dump, driven by .proto schemas loaded at run time.
//
//	protoconv -p user.proto -t app.User --from json --to xml < user.json
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/anirudhraja/protoserial"
	"github.com/anirudhraja/protoserial/serialization"
	"github.com/anirudhraja/protoserial/serialization/jsonfmt"
	"github.com/anirudhraja/protoserial/serialization/xmlfmt"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "protoconv: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := parseArgs(args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer func() { _ = logger.Sync() }()

	p, err := newProtoserial(cfg, logger)
	if err != nil {
		return err
	}

	data, err := readInput(cfg.In, stdin)
	if err != nil {
		return err
	}
	out, err := convert(p, cfg, data)
	if err != nil {
		return err
	}
	logger.Debug("converted message",
		zap.String("type", cfg.Type),
		zap.String("from", cfg.From),
		zap.String("to", cfg.To),
		zap.Int("in_bytes", len(data)),
		zap.Int("out_bytes", len(out)))
	return writeOutput(cfg.Out, stdout, out)
}

func newProtoserial(cfg config, logger *zap.Logger) (*protoserial.Protoserial, error) {
	indent := 0
	if cfg.Pretty {
		indent = 2
	}
	p := protoserial.New(
		protoserial.WithOptions(serialization.Options{MaxDepth: cfg.MaxDepth, Logger: logger}),
		protoserial.WithProtoDirectories(cfg.ImportPaths...),
		protoserial.WithFormatOptions(protoserial.FormatOptions{
			JSON: jsonfmt.WriterOptions{Indent: indent, EnumsAsNumbers: cfg.EnumsAsNumbers},
			XML: xmlfmt.WriterOptions{
				RootElement:        cfg.XMLRoot,
				OutputEnumValues:   cfg.XMLEnumValues,
				OutputNestedArrays: cfg.XMLNestedArrays,
				OutputJSONTypes:    cfg.XMLJSONTypes,
				Indent:             indent,
			},
			XMLRead: xmlfmt.ReaderOptions{ReadNestedArrays: cfg.XMLNestedArrays},
		}),
	)
	for _, path := range cfg.Protos {
		if err := p.LoadSchema(path); err != nil {
			return nil, errors.Wrapf(err, "load %s", path)
		}
		logger.Debug("loaded schema", zap.String("path", path))
	}
	return p, nil
}

func convert(p *protoserial.Protoserial, cfg config, data []byte) ([]byte, error) {
	from, err := contentTypeFor(cfg.From)
	if err != nil {
		return nil, err
	}
	m, err := p.Unmarshal(data, from, cfg.Type)
	if err != nil {
		return nil, err
	}
	if cfg.To == formatDict {
		d, err := p.ToDictionary(m)
		if err != nil {
			return nil, err
		}
		return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(d)
	}
	to, err := contentTypeFor(cfg.To)
	if err != nil {
		return nil, err
	}
	return p.Marshal(m, to)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		return data, errors.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrapf(err, "read %s", path)
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return errors.Wrap(err, "write stdout")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}
