// © 2025 NetGrid Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package printer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	apimodel "github.com/netgrid-labs/stencil/internal/api/model"
	"github.com/netgrid-labs/stencil/internal/cli/renderer"
)

type Consumer string

const (
	ConsumerHuman   Consumer = "human"
	ConsumerMachine Consumer = "machine"
)

type MachineReadablePrinter[T any] struct {
	w      io.Writer
	format string
}

func NewMachineReadablePrinter[T any](w io.Writer, format string) *MachineReadablePrinter[T] {
	return &MachineReadablePrinter[T]{
		w:      w,
		format: format,
	}
}

func (p *MachineReadablePrinter[T]) Print(v *T) error {
	var data []byte
	var err error
	switch p.format {
	case "json":
		data, err = json.Marshal(v)
		if err != nil {
			return fmt.Errorf("json marshal: %w", err)
		}
	case "yaml":
		intermediate, convertErr := convertRawMessages(v)
		if convertErr != nil {
			return fmt.Errorf("convert raw messages: %w", convertErr)
		}

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(intermediate); err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}
		data = buf.Bytes()
	default:
		return fmt.Errorf("unsupported format: %s", p.format)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	_, err = p.w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// convertRawMessages round-trips through encoding/json so json.RawMessage
// fields become plain maps instead of yaml byte arrays.
func convertRawMessages(v any) (any, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var result any
	if err := json.Unmarshal(jsonData, &result); err != nil {
		return nil, err
	}

	return result, nil
}

type HumanReadablePrinter[T any] struct {
	w io.Writer
}

func NewHumanReadablePrinter[T any](w io.Writer) *HumanReadablePrinter[T] {
	return &HumanReadablePrinter[T]{
		w: w,
	}
}

type PrintOptions struct {
	ShowText   bool
	MaxResults int
}

func (p *HumanReadablePrinter[T]) Print(v any, opts PrintOptions) error {
	var output string
	var err error

	switch v := any(v).(type) {
	case *apimodel.RenderResponse:
		output, err = renderer.RenderRenderResponse(v, opts.ShowText)
		if err != nil {
			return fmt.Errorf("render results: %w", err)
		}
	case *apimodel.ScanResponse:
		output, err = renderer.RenderScan(v)
		if err != nil {
			return fmt.Errorf("render scan: %w", err)
		}
	case *apimodel.DependenciesResponse:
		output, err = renderer.RenderDependencies(v)
		if err != nil {
			return fmt.Errorf("render dependencies: %w", err)
		}
	case *apimodel.Stats:
		output, err = renderer.RenderStats(v)
		if err != nil {
			return fmt.Errorf("render stats: %w", err)
		}
	case *apimodel.StacksResponse:
		output, err = renderer.RenderInventoryStacks(v.Stacks, opts.MaxResults)
		if err != nil {
			return fmt.Errorf("render inventory stacks: %w", err)
		}
	case *apimodel.TargetsResponse:
		output, err = renderer.RenderInventoryTargets(v.Targets, opts.MaxResults)
		if err != nil {
			return fmt.Errorf("render inventory targets: %w", err)
		}
	case *apimodel.TemplatesResponse:
		output, err = renderer.RenderInventoryTemplates(v.Templates, opts.MaxResults)
		if err != nil {
			return fmt.Errorf("render inventory templates: %w", err)
		}
	case *apimodel.FetchSpecsResponse:
		output, err = renderer.RenderInventoryFetchSpecs(v.FetchSpecs, opts.MaxResults)
		if err != nil {
			return fmt.Errorf("render inventory fetch specs: %w", err)
		}
	case *apimodel.VariablesResponse:
		output, err = renderer.RenderVariables(v)
		if err != nil {
			return fmt.Errorf("render variables: %w", err)
		}
	default:
		return fmt.Errorf("unsupported type: %T", v)
	}

	if _, err = p.w.Write([]byte(output)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
