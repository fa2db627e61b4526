package api

// DocumentInfo is the stored summary of one parsed file.
type DocumentInfo struct {
	ID        string        `json:"id"`
	Object    string        `json:"object"`
	CreatedAt int64         `json:"created_at"`
	Name      string        `json:"name,omitempty"`
	Type      string        `json:"type"`
	Size      int64         `json:"size"`
	Hash      string        `json:"hash"`
	Sections  []SectionInfo `json:"sections,omitempty"`
}

// SectionInfo summarizes one data chunk: its field name, the tag it
// carries on the wire and its record count.
type SectionInfo struct {
	Name  string `json:"name"`
	Tag   string `json:"tag,omitempty"`
	Count int64  `json:"count"`
}

// DocumentDetail is the summary plus the full structure tree.
type DocumentDetail struct {
	DocumentInfo
	Root *TreeNode `json:"root"`
}

// TreeNode is one node of the structure tree: a struct with fields, an
// array with elements, or a leaf with a value.
type TreeNode struct {
	Name   string      `json:"name,omitempty"`
	Type   string      `json:"type"`
	Value  any         `json:"value,omitempty"`
	Fields []*TreeNode `json:"fields,omitempty"`
	Elems  []*TreeNode `json:"elems,omitempty"`
}

type DocumentList struct {
	Object  string         `json:"object"`
	Data    []DocumentInfo `json:"data"`
	FirstID string         `json:"first_id,omitempty"`
	LastID  string         `json:"last_id,omitempty"`
	HasMore bool           `json:"has_more,omitempty"`
}

type DocumentStrings struct {
	ID     string   `json:"id"`
	Object string   `json:"object"`
	Data   []string `json:"data"`
}

type DeleteDocumentResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// CreateDocumentReq is the JSON upload form; Data carries the file
// base64-encoded. Raw octet-stream uploads bypass it.
type CreateDocumentReq struct {
	Name string `json:"name,omitempty"`
	Data []byte `json:"data"`
}

type ErrorInfo struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
