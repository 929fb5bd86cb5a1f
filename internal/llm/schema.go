package llm

// SchemaType mirrors the OpenAPI subset accepted by structured output.
type SchemaType string

const (
	TypeObject  SchemaType = "OBJECT"
	TypeArray   SchemaType = "ARRAY"
	TypeString  SchemaType = "STRING"
	TypeNumber  SchemaType = "NUMBER"
	TypeInteger SchemaType = "INTEGER"
	TypeBoolean SchemaType = "BOOLEAN"
)

// Schema describes the response shape requested from the model.
type Schema struct {
	Type             SchemaType
	Description      string
	Properties       map[string]*Schema
	PropertyOrdering []string
	Required         []string
	Items            *Schema
	Enum             []string
}

// Object builds an object schema; property order follows the pairs.
func Object(props ...Property) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props))}
	for _, p := range props {
		s.Properties[p.Name] = p.Schema
		s.PropertyOrdering = append(s.PropertyOrdering, p.Name)
	}
	return s
}

func ArrayOf(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

func String() *Schema { return &Schema{Type: TypeString} }

func Number() *Schema { return &Schema{Type: TypeNumber} }

func Enum(values ...string) *Schema { return &Schema{Type: TypeString, Enum: values} }

type Property struct {
	Name   string
	Schema *Schema
}

func Prop(name string, s *Schema) Property { return Property{Name: name, Schema: s} }
