package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/consensus"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/models/reports"
)

const maxImportSizeBytes int64 = 20 * 1024 * 1024

const maestroReport = "maestro"

// readUpload parses the multipart "file" field as a csv or xlsx table.
func readUpload(c *gin.Context) (*reports.Table, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, consensus.NewValidationError("file", "a csv or xlsx file is required")
	}
	if header.Size > maxImportSizeBytes {
		return nil, consensus.NewValidationError(header.Filename, "file size exceeds 20MB limit")
	}
	format, err := reports.FormatFromFilename(header.Filename)
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return reports.ReadTable(f, format)
}

func (h *Handler) lookupMaestro() gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := h.store.GetMasterRecord(c.Request.Context(), 0, c.Param("sku"))
		if err != nil {
			h.writeError(c, "lookupMaestro", c.Param("sku"), err)
			return
		}
		if rec == nil {
			h.writeError(c, "lookupMaestro", nil, consensus.NewNotFoundError(consensus.NormalizeSKU(c.Param("sku")), "sku not in maestro"))
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func (h *Handler) importMaestro() gin.HandlerFunc {
	return func(c *gin.Context) {
		table, err := readUpload(c)
		if err != nil {
			h.writeError(c, "importMaestro", nil, err)
			return
		}
		rows, err := reports.ParseMasterRecords(table)
		if err != nil {
			h.writeError(c, "importMaestro", nil, consensus.NewValidationError("file", err.Error()))
			return
		}
		result, err := h.store.ImportMasterRecords(c.Request.Context(), rows, currentSession(c).Email)
		if err != nil {
			h.writeError(c, "importMaestro", len(rows), err)
			return
		}
		reports.InvalidateReports(maestroReport)
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) exportMaestro() gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := reports.ParseFormat(c.Query("format"))
		if err != nil {
			h.writeError(c, "exportMaestro", nil, err)
			return
		}
		table, err := reports.CachedTable(c.Request.Context(), maestroReport, func(ctx context.Context) (reports.Table, error) {
			records, err := h.store.ListMasterRecords(ctx)
			if err != nil {
				return reports.Table{}, err
			}
			return reports.MaestroTable(records), nil
		})
		if err != nil {
			h.writeError(c, "exportMaestro", nil, err)
			return
		}
		h.sendTable(c, 0, maestroReport, table, format)
	}
}

func (h *Handler) importDictionary() gin.HandlerFunc {
	return func(c *gin.Context) {
		var kind models.DictionaryKind
		if raw := strings.TrimSpace(c.PostForm("kind")); raw != "" {
			parsed, err := models.ParseDictionaryKind(raw)
			if err != nil {
				badRequest(c, err.Error())
				return
			}
			kind = parsed
		}
		table, err := readUpload(c)
		if err != nil {
			h.writeError(c, "importDictionary", kind, err)
			return
		}
		entries, err := reports.ParseDictionary(table, kind)
		if err != nil {
			h.writeError(c, "importDictionary", kind, consensus.NewValidationError("file", err.Error()))
			return
		}
		result, err := h.store.ImportDictionary(c.Request.Context(), entries)
		if err != nil {
			h.writeError(c, "importDictionary", len(entries), err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// listDictionaries returns one kind, or all kinds keyed by kind.
func (h *Handler) listDictionaries() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
			kind, err := models.ParseDictionaryKind(raw)
			if err != nil {
				badRequest(c, err.Error())
				return
			}
			rows, err := h.store.ListDictionary(ctx, kind)
			if err != nil {
				h.writeError(c, "listDictionaries", kind, err)
				return
			}
			c.JSON(http.StatusOK, rows)
			return
		}
		all := make(map[models.DictionaryKind][]*models.CodeDictionary, len(models.DictionaryKinds))
		for _, kind := range models.DictionaryKinds {
			rows, err := h.store.ListDictionary(ctx, kind)
			if err != nil {
				h.writeError(c, "listDictionaries", kind, err)
				return
			}
			all[kind] = rows
		}
		c.JSON(http.StatusOK, all)
	}
}
