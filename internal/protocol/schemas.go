package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemas = map[string]*jsonschema.Schema{
	TypeHello:  mustSchema("hello.schema.json"),
	TypeMeta:   mustSchema("meta.schema.json"),
	TypeRender: mustSchema("render.schema.json"),
	TypeLayer:  mustSchema("layer.schema.json"),
	TypeError:  mustSchema("error.schema.json"),
}

func mustSchema(name string) *jsonschema.Schema {
	b, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString(name, string(b))
}

// Validate checks a raw message against the schema for its type.
func Validate(msgType string, raw []byte) error {
	s, ok := schemas[msgType]
	if !ok {
		return fmt.Errorf("no schema for message type %q", msgType)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
