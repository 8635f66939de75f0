// Package patch applies RFC 6902 operations to catalog documents, limited
// to an allow-list of JSON pointers.
package patch

const (
	OperationAdd     = "add"
	OperationRemove  = "remove"
	OperationReplace = "replace"
	OperationMove    = "move"
	OperationCopy    = "copy"
	OperationTest    = "test"
)

type Operation struct {
	Op    string `json:"op" yaml:"op" validate:"required,oneof=add remove replace move copy test"`
	Path  string `json:"path" yaml:"path" validate:"required"`
	From  string `json:"from,omitempty" yaml:"from,omitempty"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}
