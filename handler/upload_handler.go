package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/docrag-be/service"
	"github.com/tieubaoca/docrag-be/types"
)

const maxUploadSize = 50 << 20

type UploadHandler struct {
	fileService *service.FileService
}

func NewUploadHandler(fileService *service.FileService) *UploadHandler {
	return &UploadHandler{
		fileService: fileService,
	}
}

// UploadDocumentHandler accepts a multipart PDF upload and streams
// processing progress back as SSE, ending with the run's stats.
func (h *UploadHandler) UploadDocumentHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	var req types.UploadRequest
	if metadata := c.Request.FormValue("metadata"); metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &req); err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{
				Status:  "error",
				Message: "Invalid metadata",
			})
			return
		}
	}

	if header.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "File too large",
		})
		return
	}

	statusChan := make(chan types.ProcessingDocumentStatus)
	type uploadResult struct {
		res *types.UploadResponse
		err error
	}
	resultChan := make(chan uploadResult, 1)
	go func() {
		defer close(statusChan)
		res, err := h.fileService.UploadFile(c.Request.Context(), req, header, statusChan)
		resultChan <- uploadResult{res: res, err: err}
	}()

	clientGone := c.Writer.CloseNotify()
	for {
		select {
		case <-clientGone:
			return
		case status, ok := <-statusChan:
			if !ok {
				result := <-resultChan
				if result.err != nil {
					c.JSON(http.StatusInternalServerError, types.DataResponse{
						Status:  "error",
						Message: result.err.Error(),
					})
				} else {
					c.JSON(http.StatusOK, types.DataResponse{
						Status: "success",
						Data:   result.res,
					})
				}
				return
			}
			jsonStatus, err := json.Marshal(status)
			if err != nil {
				continue
			}
			c.SSEvent("message", string(jsonStatus))
			c.Writer.Flush()
		}
	}
}

// DeleteDocumentHandler drops a document's chunks from the index.
func (h *UploadHandler) DeleteDocumentHandler(c *gin.Context) {
	docName := c.Query("doc_name")
	if docName == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  "error",
			Message: "doc_name is required",
		})
		return
	}
	if err := h.fileService.DeleteDocument(c.Request.Context(), docName); err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  "error",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
	})
}
