package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/relicdev/relic/pkg/formats/psk"
	"github.com/relicdev/relic/pkg/object"
)

// Server exposes parsed format files over HTTP: upload one, browse its
// structure tree and strings, delete it when done.
type Server struct {
	store     *DocumentStore
	clock     func() time.Time
	maxUpload int64
}

const defaultMaxUpload = 64 << 20

func NewServer(store *DocumentStore) *Server {
	if store == nil {
		store = NewDocumentStore()
	}
	return &Server{
		store:     store,
		clock:     time.Now,
		maxUpload: defaultMaxUpload,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/documents", s.handleCreateDocument)
	e.GET("/v1/documents", s.handleListDocuments)
	e.GET("/v1/documents/:id", s.handleGetDocument)
	e.GET("/v1/documents/:id/strings", s.handleGetStrings)
	e.DELETE("/v1/documents/:id", s.handleDeleteDocument)
}

// handleCreateDocument accepts either a raw binary body with an
// optional ?name= query, or a JSON body with base64 file data.
func (s *Server) handleCreateDocument(c *echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, s.maxUpload+1))
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("read upload: %v", err))
	}
	if int64(len(body)) > s.maxUpload {
		return writeBadRequest(c, fmt.Sprintf("upload exceeds %d bytes", s.maxUpload))
	}

	name := c.QueryParam("name")
	data := body
	if ct := c.Request().Header.Get(echo.HeaderContentType); strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		req, err := decodeJSON[CreateDocumentReq](bytes.NewReader(body))
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		if name == "" {
			name = req.Name
		}
		data = req.Data
	}
	if len(data) == 0 {
		return writeBadRequest(c, "empty upload")
	}

	doc, err := parseDocument(name, data)
	if err != nil {
		if errors.Is(err, object.ErrStreamFormat) || errors.Is(err, io.ErrUnexpectedEOF) {
			return writeBadRequest(c, err.Error())
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}

	info := s.store.Create(doc, s.clock())
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleListDocuments(c *echo.Context) error {
	infos := s.store.List()
	out := DocumentList{
		Object: "list",
		Data:   infos,
	}
	if len(infos) > 0 {
		out.FirstID = infos[0].ID
		out.LastID = infos[len(infos)-1].ID
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetDocument(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeNotFound(c, "document not found")
	}
	rec, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "document not found")
	}
	return c.JSON(http.StatusOK, DocumentDetail{
		DocumentInfo: rec.Info,
		Root:         rec.Root,
	})
}

func (s *Server) handleGetStrings(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeNotFound(c, "document not found")
	}
	rec, ok := s.store.Get(id)
	if !ok {
		return writeNotFound(c, "document not found")
	}
	return c.JSON(http.StatusOK, DocumentStrings{
		ID:     id,
		Object: "document.strings",
		Data:   rec.Strings,
	})
}

func (s *Server) handleDeleteDocument(c *echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return writeNotFound(c, "document not found")
	}
	if !s.store.Delete(id) {
		return writeNotFound(c, "document not found")
	}
	return c.JSON(http.StatusOK, DeleteDocumentResp{
		ID:      id,
		Object:  "document",
		Deleted: true,
	})
}

// parsedDocument is everything the store keeps for one upload, rendered
// once at parse time.
type parsedDocument struct {
	Name     string
	Type     string
	Size     int64
	Hash     string
	Sections []SectionInfo
	Root     *TreeNode
	Strings  []string
}

func parseDocument(name string, data []byte) (*parsedDocument, error) {
	f, err := psk.Read(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	hash, err := f.Hash()
	if err != nil {
		return nil, err
	}
	strs, err := f.Strings()
	if err != nil {
		return nil, err
	}
	if strs == nil {
		strs = []string{}
	}

	names := f.SectionNames()
	sections := make([]SectionInfo, 0, len(names))
	for _, sec := range names {
		ins, ok := f.Section(sec)
		if !ok {
			continue
		}
		si := SectionInfo{Name: sec}
		if v, ok := ins.Field("chunk_id"); ok {
			if tag, ok := v.Get().(string); ok {
				si.Tag = tag
			}
		}
		if v, ok := ins.Field("data_count"); ok {
			if n, ok := v.Get().(int64); ok {
				si.Count = n
			}
		}
		sections = append(sections, si)
	}

	return &parsedDocument{
		Name:     name,
		Type:     f.Type.String(),
		Size:     size,
		Hash:     fmt.Sprintf("%016x", hash),
		Sections: sections,
		Root:     treeOf("", f.Root),
		Strings:  strs,
	}, nil
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
