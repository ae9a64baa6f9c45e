package pipeline

import "fmt"

// Field names one slot of the pipeline context.
type Field string

const (
	FieldNone           Field = ""
	FieldTargetNetwork  Field = "target_network"
	FieldSigningAddress Field = "signing_address"
	FieldArtifactPath   Field = "artifact_path"
	FieldRemoteID       Field = "remote_id"
)

// Inputs is the read-only view stages receive.
type Inputs interface {
	Value(field Field) string
}

// Values is a map-backed Inputs, handy for driving a single stage.
type Values map[Field]string

// Value implements Inputs.
func (v Values) Value(field Field) string {
	return v[field]
}

// Context is the mutable record threaded through a run. Only the pipeline
// writes to it, and only the field the producing stage declared.
type Context struct {
	TargetNetwork  string
	SigningAddress string
	ArtifactPath   string
	RemoteID       string
}

// NewContext seeds a context for a run against network.
func NewContext(network string) *Context {
	return &Context{TargetNetwork: network}
}

// Value implements Inputs.
func (c *Context) Value(field Field) string {
	if c == nil {
		return ""
	}
	switch field {
	case FieldTargetNetwork:
		return c.TargetNetwork
	case FieldSigningAddress:
		return c.SigningAddress
	case FieldArtifactPath:
		return c.ArtifactPath
	case FieldRemoteID:
		return c.RemoteID
	default:
		return ""
	}
}

func (c *Context) set(field Field, value string) error {
	switch field {
	case FieldSigningAddress:
		c.SigningAddress = value
	case FieldArtifactPath:
		c.ArtifactPath = value
	case FieldRemoteID:
		c.RemoteID = value
	case FieldTargetNetwork:
		return fmt.Errorf("pipeline: %s is fixed for a run", field)
	default:
		return fmt.Errorf("pipeline: unknown field %q", field)
	}
	return nil
}

func (c *Context) snapshot() Context {
	if c == nil {
		return Context{}
	}
	return *c
}
