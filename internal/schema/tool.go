package schema

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnumAnnotation marks a flag whose values are restricted. Set it with
// cmd.Flags().SetAnnotation(name, EnumAnnotation, values).
const EnumAnnotation = "yieldscout_enum"

const RecommendToolName = "recommend_yield_opportunities"

// ToolDefinition describes a tool to a conversational dispatch layer.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// RecommendTool builds the tool definition from a query command. The free
// text becomes "query" and every local flag becomes a camelCase property.
func RecommendTool(cmd *cobra.Command) ToolDefinition {
	props := map[string]any{
		"query": StringProperty("Free-text question, e.g. 'What is the APY for Amnis Finance?' or 'compare risk levels'"),
	}
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		props[camel(f.Name)] = flagProperty(f)
	})
	return ToolDefinition{
		Name:        RecommendToolName,
		Description: strings.TrimSpace(cmd.Short + ". " + cmd.Long),
		InputSchema: ObjectSchema(props),
	}
}

func flagProperty(f *pflag.Flag) map[string]any {
	if values := f.Annotations[EnumAnnotation]; len(values) > 0 {
		return StringEnumProperty(f.Usage, values...)
	}
	return map[string]any{
		"type":        jsonType(f),
		"description": f.Usage,
	}
}

// jsonType maps a pflag value type onto a JSON schema type.
func jsonType(f *pflag.Flag) string {
	switch f.Value.Type() {
	case "float32", "float64":
		return "number"
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "count":
		return "integer"
	case "bool":
		return "boolean"
	default:
		return "string"
	}
}

func camel(flagName string) string {
	parts := strings.Split(flagName, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func StringProperty(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
	}
}

func StringEnumProperty(description string, values ...string) map[string]any {
	return map[string]any{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}
