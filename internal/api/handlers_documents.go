// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crewdeck/crewdeck/internal/audit"
	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/store"
)

// blobPath resolves a stored name inside the storage directory. Stored
// names are server-generated UUIDs, never client input.
func (h *Handlers) blobPath(storedName string) string {
	return filepath.Join(h.cfg.Storage.Dir, storedName)
}

// removeBlob deletes a document's content from disk. Failure is logged
// and swallowed; the metadata row is already gone.
func (h *Handlers) removeBlob(ctx context.Context, doc *models.Document) {
	if doc.StoredName == "" {
		return
	}
	if err := os.Remove(h.blobPath(doc.StoredName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Ctx(ctx).Error().Err(err).
			Str("document_id", doc.ID).
			Str("stored_name", doc.StoredName).
			Msg("Failed to remove document blob")
	}
}

// accessEntries resolves user ids into access-list entries with the
// role each user holds right now. Admins are skipped: their access is
// implicit and never stored. Unknown ids are an error.
func (h *Handlers) accessEntries(ctx context.Context, userIDs []string) ([]models.DocumentAccess, error) {
	seen := make(map[string]bool, len(userIDs))
	var entries []models.DocumentAccess
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		u, err := h.store.Users.GetUserByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("user %s does not exist", id)
			}
			return nil, err
		}
		if u.Role == models.RoleAdmin {
			continue
		}
		entries = append(entries, models.DocumentAccess{UserID: u.ID, RoleAtGrant: u.Role})
	}
	return entries, nil
}

// snapshotAccess builds the upload-time access list: the project lead
// and every assigned developer, each with their current role.
func (h *Handlers) snapshotAccess(ctx context.Context, project *models.Project) ([]models.DocumentAccess, error) {
	ids := make([]string, 0, len(project.AssignedDevelopers)+1)
	if project.ProjectLead != "" {
		ids = append(ids, project.ProjectLead)
	}
	ids = append(ids, project.AssignedDevelopers...)
	return h.accessEntries(ctx, ids)
}

// loadDocument fetches the document named by the {id} URL parameter
// together with its parent project.
func (h *Handlers) loadDocument(r *http.Request) (*models.Document, *models.Project, error) {
	ctx := r.Context()
	doc, err := h.store.Documents.GetDocument(ctx, chi.URLParam(r, "id"))
	if err != nil {
		return nil, nil, err
	}
	project, err := h.store.Projects.GetProject(ctx, doc.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return doc, project, nil
}

// ListDocuments handles GET /api/v1/projects/{id}/documents. The
// listing is scoped to the documents the subject may read.
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sub, _ := subject(r)

	project, err := h.loadProject(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanReadProject(sub, project) {
		rw.NotFound("Resource not found")
		return
	}

	docs, err := h.store.Documents.ListByProject(r.Context(), project.ID, authz.DocumentScopeFor(sub, project))
	if err != nil {
		rw.FromError(err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	rw.Success(docs)
}

// UploadDocument handles POST /api/v1/projects/{id}/documents. The
// upload is multipart with a "file" part and a "classification" field.
func (h *Handlers) UploadDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	project, err := h.loadProject(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanUploadDocument(sub, project) {
		h.denyProject(rw, r, sub, project)
		return
	}

	// Size limit plus slack for the multipart framing itself.
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxDocumentSize+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		rw.BadRequest("A multipart \"file\" part is required")
		return
	}
	defer file.Close() //nolint:errcheck

	classification := r.FormValue("classification")
	if !models.IsValidClassification(classification) {
		rw.BadRequest("Invalid classification")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if !models.AllowedContentTypes[contentType] {
		rw.BadRequest("Content type not allowed")
		return
	}
	if header.Size > models.MaxDocumentSize {
		rw.BadRequest("Document exceeds the maximum size")
		return
	}

	access, err := h.snapshotAccess(ctx, project)
	if err != nil {
		rw.InternalError(err)
		return
	}

	storedName := uuid.New().String()
	dst, err := os.OpenFile(h.blobPath(storedName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		rw.InternalError(err)
		return
	}

	hasher := sha256.New()
	size, err := io.Copy(dst, io.TeeReader(file, hasher))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil || size > models.MaxDocumentSize {
		os.Remove(h.blobPath(storedName)) //nolint:errcheck
		if err != nil {
			rw.InternalError(err)
		} else {
			rw.BadRequest("Document exceeds the maximum size")
		}
		return
	}

	doc := &models.Document{
		ProjectID:      project.ID,
		StoredName:     storedName,
		OriginalName:   filepath.Base(header.Filename),
		Size:           size,
		ContentType:    contentType,
		Checksum:       hex.EncodeToString(hasher.Sum(nil)),
		Classification: classification,
		UploadedBy:     sub.ID,
		AccessibleBy:   access,
	}
	if err := h.store.Documents.CreateDocument(ctx, doc); err != nil {
		os.Remove(h.blobPath(storedName)) //nolint:errcheck
		rw.FromError(err)
		return
	}

	h.audit.Record(ctx, sub, audit.ActionDocumentUpload, audit.ResourceDocument, doc.ID, doc.OriginalName)
	logging.Ctx(ctx).Info().
		Str("document_id", doc.ID).
		Str("project_id", project.ID).
		Int64("size", size).
		Msg("Document uploaded")
	rw.Created(doc)
}

// GetDocument handles GET /api/v1/documents/{id}.
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sub, _ := subject(r)

	doc, project, err := h.loadDocument(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanReadDocument(sub, doc) {
		h.denyProject(rw, r, sub, project)
		return
	}

	h.audit.Record(r.Context(), sub, audit.ActionDocumentView, audit.ResourceDocument, doc.ID, "")
	rw.Success(doc)
}

// DownloadDocument handles GET /api/v1/documents/{id}/download.
func (h *Handlers) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sub, _ := subject(r)

	doc, project, err := h.loadDocument(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanReadDocument(sub, doc) {
		h.denyProject(rw, r, sub, project)
		return
	}

	f, err := os.Open(h.blobPath(doc.StoredName))
	if err != nil {
		rw.InternalError(err)
		return
	}
	defer f.Close() //nolint:errcheck

	h.audit.Record(r.Context(), sub, audit.ActionDocumentDownload, audit.ResourceDocument, doc.ID, "")

	name := strings.ReplaceAll(doc.OriginalName, `"`, "")
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, doc.OriginalName, doc.CreatedAt, f)
}

// SetDocumentAccess handles PUT /api/v1/documents/{id}/access.
func (h *Handlers) SetDocumentAccess(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	doc, project, err := h.loadDocument(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanManageDocumentAccess(sub, authz.DocumentInProject{Document: doc, Project: project}) {
		h.denyProject(rw, r, sub, project)
		return
	}

	var req AccessListRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}

	access, err := h.accessEntries(ctx, req.UserIDs)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := h.store.Documents.ReplaceAccessList(ctx, doc.ID, access); err != nil {
		rw.FromError(err)
		return
	}

	doc, err = h.store.Documents.GetDocument(ctx, doc.ID)
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(doc)
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()
	sub, _ := subject(r)

	doc, project, err := h.loadDocument(r)
	if err != nil {
		rw.FromError(err)
		return
	}
	if !authz.CanDeleteDocument(sub, authz.DocumentInProject{Document: doc, Project: project}) {
		h.denyProject(rw, r, sub, project)
		return
	}

	if err := h.store.Documents.DeleteDocument(ctx, doc.ID); err != nil {
		rw.FromError(err)
		return
	}
	h.removeBlob(ctx, doc)

	h.audit.Record(ctx, sub, audit.ActionDocumentDelete, audit.ResourceDocument, doc.ID, doc.OriginalName)
	rw.NoContent()
}
