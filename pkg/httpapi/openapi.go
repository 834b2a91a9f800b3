package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// openapiSpec is the embedded OpenAPI document describing the trigger API
// (spec.md §6). It is loaded once at startup and used to validate POST
// request bodies against their declared schema, the same shape as the
// corpus's embedded-spec + schema-validation pattern for its own HTTP
// surfaces.
//
//go:embed openapi.yaml
var openapiSpec []byte

// openAPIDoc wraps the parsed document plus the one request-body schema
// this router validates against.
type openAPIDoc struct {
	doc          *openapi3.T
	runReqSchema *openapi3.Schema
}

func loadOpenAPIDoc() (*openAPIDoc, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("httpapi: parsing embedded OpenAPI document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("httpapi: embedded OpenAPI document is invalid: %w", err)
	}

	pathItem := doc.Paths.Find("/pipeline/run")
	if pathItem == nil || pathItem.Post == nil || pathItem.Post.RequestBody == nil {
		return nil, fmt.Errorf("httpapi: embedded OpenAPI document is missing POST /pipeline/run request body")
	}
	media := pathItem.Post.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil, fmt.Errorf("httpapi: embedded OpenAPI document is missing the run request schema")
	}

	return &openAPIDoc{doc: doc, runReqSchema: media.Schema.Value}, nil
}

// validateRunRequest checks raw request-body JSON against the embedded
// schema for POST /pipeline/run (target_date required, tier optionally
// one of A/B/C).
func (d *openAPIDoc) validateRunRequest(ctx context.Context, raw []byte) error {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return d.runReqSchema.VisitJSON(value)
}
