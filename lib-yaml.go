package main

import (
	"bytes"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/itchyny/gojq"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//
// ENVIRONMENT EXPORT
//

// yamlValue builds a yaml node tree so object and binding order survive
// the trip; marshalling a map would sort the keys.
func yamlValue(n *Node) *yaml.Node {
	switch n.Kind {
	case NumberNode:
		switch {
		case math.IsNaN(n.Num):
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".nan"}
		case math.IsInf(n.Num, 1):
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".inf"}
		case math.IsInf(n.Num, -1):
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: "-.inf"}
		}
		tag := "!!float"
		if n.Num == math.Trunc(n.Num) && math.Abs(n.Num) < 1e16 {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: formatNumber(n.Num)}
	case StringNode:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Str}
	case BooleanNode:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.Bool)}
	case NullNode:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case ArrayNode:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, k := range n.Items.Keys() {
			v, _ := n.Items.Get(k)
			seq.Content = append(seq.Content, yamlValue(v))
		}
		return seq
	case ObjectNode:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.Items.Keys() {
			v, _ := n.Items.Get(k)
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: exportKey(k)},
				yamlValue(v))
		}
		return m
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: render(n, false)}
}

func writeYAML(w io.Writer, e *Environment, full bool) error {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range exportBindings(e, full) {
		v, _ := e.Lookup(name)
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			yamlValue(v))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding environment")
	}
	return enc.Close()
}

//
// CONFIG
//

const configEnvVar = "EPL_CONFIG"
const defaultConfigFile = "epl.yaml"

type Config struct {
	Display        string `yaml:"display"`
	Format         string `yaml:"format"`
	Query          string `yaml:"query"`
	LogToStderr    bool   `yaml:"logtostderr"`
	Verbose        int    `yaml:"verbose"`
	MaxImportDepth int    `yaml:"max_import_depth"`
	Color          string `yaml:"color"`
}

func defaultConfig() Config {
	return Config{
		Display:        displayNone,
		Format:         formatText,
		MaxImportDepth: defaultMaxImportDepth,
		Color:          "auto",
	}
}

// loadConfig reads the first config file found: the explicit path, then
// $EPL_CONFIG, then ./epl.yaml. No file at all is not an error, but an
// explicitly named one must exist.
func loadConfig(fs afero.Fs, explicit string) (Config, error) {
	cfg := defaultConfig()

	path := explicit
	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path == "" {
		if ok, _ := afero.Exists(fs, defaultConfigFile); !ok {
			return cfg, nil
		}
		path = defaultConfigFile
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate reports every bad field at once.
func (c Config) Validate() error {
	var result *multierror.Error

	switch c.Display {
	case displayNone, displayUser, displayFull:
	default:
		result = multierror.Append(result, errors.Errorf("display must be none, user or full, not %q", c.Display))
	}
	switch c.Format {
	case formatText, formatJSON, formatYAML:
	default:
		result = multierror.Append(result, errors.Errorf("format must be text, json or yaml, not %q", c.Format))
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		result = multierror.Append(result, errors.Errorf("color must be auto, always or never, not %q", c.Color))
	}
	if c.Verbose < 0 {
		result = multierror.Append(result, errors.Errorf("verbose must not be negative"))
	}
	if c.MaxImportDepth < 1 {
		result = multierror.Append(result, errors.Errorf("max_import_depth must be at least 1"))
	}
	if c.Query != "" {
		if _, err := gojq.Parse(c.Query); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "query"))
		}
	}

	return result.ErrorOrNil()
}
