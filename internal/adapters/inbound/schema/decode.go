// Package schema decodes validation requests from JSON, checking them
// against the embedded request schema first.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/abdidvp/luaguard/internal/domain"
)

//go:embed request.schema.json
var requestSchema []byte

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(requestSchema)
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return schema, nil
})

// RequestSchema returns the raw JSON schema for one request.
func RequestSchema() []byte { return requestSchema }

// DecodeRequest validates data against the request schema and decodes it.
// Malformed JSON and schema violations are input errors.
func DecodeRequest(data []byte) (domain.ValidationRequest, error) {
	var req domain.ValidationRequest
	if err := check(data); err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, domain.NewInputError(domain.CodeMalformed, fmt.Sprintf("decoding request: %v", err))
	}
	return req, nil
}

// Batch is a decoded batch. Requests holds the well-formed elements and
// Index their positions in the input; Rejected holds the rest.
type Batch struct {
	Size     int
	Requests []domain.ValidationRequest
	Index    []int
	Rejected []domain.RejectedInput
}

// DecodeBatch decodes a JSON array of requests, or an object with a
// "requests" array. Every element is checked against the request schema; a
// failing element is rejected on its own. Only a malformed envelope is an
// error.
func DecodeBatch(data []byte) (*Batch, error) {
	var raw []json.RawMessage
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Requests []json.RawMessage `json:"requests"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, domain.NewInputError(domain.CodeMalformed, fmt.Sprintf("decoding batch: %v", err))
		}
		if wrapper.Requests == nil {
			return nil, domain.NewInputError(domain.CodeMalformed, `batch object has no "requests" array`)
		}
		raw = wrapper.Requests
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, domain.NewInputError(domain.CodeMalformed, fmt.Sprintf("decoding batch: %v", err))
	}

	b := &Batch{Size: len(raw)}
	for i, r := range raw {
		req, err := DecodeRequest(r)
		if err != nil {
			b.Rejected = append(b.Rejected, domain.RejectedInput{
				Index:      i,
				ScriptName: scriptName(r),
				Err:        domain.NewInputError(domain.CodeOf(err), fmt.Sprintf("request %d: %v", i, err)),
			})
			continue
		}
		b.Requests = append(b.Requests, req)
		b.Index = append(b.Index, i)
	}
	return b, nil
}

// scriptName recovers the name of a rejected element when it has one.
func scriptName(r json.RawMessage) string {
	var named struct {
		ScriptName any `json:"scriptName"`
	}
	if err := json.Unmarshal(r, &named); err != nil {
		return ""
	}
	name, _ := named.ScriptName.(string)
	return name
}

func check(data []byte) error {
	if !json.Valid(data) {
		return domain.NewInputError(domain.CodeMalformed, "request is not valid JSON")
	}
	schema, err := compiled()
	if err != nil {
		return domain.NewSystemError(domain.CodeSchema, "loading request schema", err)
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return domain.NewInputError(domain.CodeSchema, fmt.Sprintf("schema validation failed: %v", result.Errors))
}
