package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"

	"MetadataExtractor/internal/domain"
)

const fence = "```"

var validate = validator.New()

// StripFences removes a markdown code fence (```json ... ``` or ``` ... ```) wrapping a JSON body.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, fence) {
		return cleaned
	}

	cleaned = strings.TrimPrefix(cleaned, fence)
	// drop the info string ("json", "JSON", ...) up to the end of the opening line
	if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 {
		if info := strings.TrimSpace(cleaned[:idx]); !strings.ContainsAny(info, "{[") {
			cleaned = cleaned[idx+1:]
		}
	} else {
		cleaned = strings.TrimPrefix(cleaned, "json")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), fence)
	return strings.TrimSpace(cleaned)
}

// ParseResponse unwraps and decodes one raw model response. Unknown fields,
// trailing data and missing required fields are rejected with ErrInvalidResponse.
func ParseResponse(raw string) (domain.ExtractionResponse, error) {
	body := StripFences(raw)
	if body == "" {
		return domain.ExtractionResponse{}, fmt.Errorf("%w: empty body", domain.ErrInvalidResponse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()

	var resp domain.ExtractionResponse
	if err := dec.Decode(&resp); err != nil {
		return domain.ExtractionResponse{}, fmt.Errorf("%w: decode: %v", domain.ErrInvalidResponse, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return domain.ExtractionResponse{}, fmt.Errorf("%w: trailing data after JSON body", domain.ErrInvalidResponse)
	}

	if err := validate.Struct(resp); err != nil {
		return domain.ExtractionResponse{}, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}

	return resp, nil
}
