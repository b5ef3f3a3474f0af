package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"resumerank/internal/errors"
	"resumerank/internal/observability"
	"resumerank/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Response messages
const (
	msgCriteriaExtracted   = "Criteria extracted successfully"
	msgInvalidCriteriaFile = "Invalid file format. Only PDF and DOCX files are accepted."
	msgCriteriaFailed      = "Error extracting criteria"
	msgInvalidScoreRequest = "Invalid file format or criteria format"
	msgScoringFailed       = "Error scoring resumes"
	msgRequestTooLarge     = "Request body too large"
)

// Multipart form fields
const (
	fieldCriteriaFile  = "file"
	fieldScoreCriteria = "criteria"
	fieldScoreFiles    = "files"
)

const (
	reportDownloadName   = "resume_scores.csv"
	multipartMemoryLimit = 32 << 20
)

// createExtractCriteriaHandler handles one job description upload in field "file"
func (s *Server) createExtractCriteriaHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeErrorEnvelope(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported")
			return
		}

		ctx, span := om.Tracer("resumerank.api").Start(r.Context(), "api.extract_criteria")
		defer span.End()

		if err := parseMultipart(r); err != nil {
			span.RecordError(err)
			s.writeFailure(w, err, msgInvalidCriteriaFile, msgCriteriaFailed)
			return
		}

		headers := r.MultipartForm.File[fieldCriteriaFile]
		if len(headers) != 1 {
			err := errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("exactly one %q upload is required, got %d", fieldCriteriaFile, len(headers)), nil)
			span.RecordError(err)
			s.writeFailure(w, err, msgInvalidCriteriaFile, msgCriteriaFailed)
			return
		}

		doc, err := readUpload(headers[0])
		if err != nil {
			span.RecordError(err)
			s.writeFailure(w, err, msgInvalidCriteriaFile, msgCriteriaFailed)
			return
		}
		span.SetAttributes(
			attribute.String("document.name", doc.Name),
			attribute.String("document.media_type", doc.MediaType),
			attribute.Int("document.size", len(doc.Content)),
		)

		criteria, err := s.Workflows.ExtractCriteria(ctx, doc)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "extract criteria failed")
			s.writeFailure(w, err, msgInvalidCriteriaFile, msgCriteriaFailed)
			return
		}

		span.SetAttributes(attribute.Bool("success", true))
		writeEnvelope(w, http.StatusOK, Envelope{Data: criteria, Message: msgCriteriaExtracted})
	}
}

// createScoreResumesHandler scores the "files" uploads against the "criteria" JSON object
// and streams the CSV report back
func (s *Server) createScoreResumesHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeErrorEnvelope(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported")
			return
		}

		ctx, span := om.Tracer("resumerank.api").Start(r.Context(), "api.score_resumes")
		defer span.End()

		if err := parseMultipart(r); err != nil {
			span.RecordError(err)
			s.writeFailure(w, err, msgInvalidScoreRequest, msgScoringFailed)
			return
		}

		rubric, err := parseRubricField(r.MultipartForm.Value[fieldScoreCriteria])
		if err != nil {
			span.RecordError(err)
			s.writeFailure(w, err, msgInvalidScoreRequest, msgScoringFailed)
			return
		}

		headers := r.MultipartForm.File[fieldScoreFiles]
		if s.MaxUploadFiles > 0 && len(headers) > s.MaxUploadFiles {
			err := errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("too many files: %d (limit %d)", len(headers), s.MaxUploadFiles), nil)
			span.RecordError(err)
			s.writeFailure(w, err, msgInvalidScoreRequest, msgScoringFailed)
			return
		}

		docs := make([]types.Document, 0, len(headers))
		for _, header := range headers {
			doc, err := readUpload(header)
			if err != nil {
				span.RecordError(err)
				s.writeFailure(w, err, msgInvalidScoreRequest, msgScoringFailed)
				return
			}
			docs = append(docs, doc)
		}
		span.SetAttributes(
			attribute.Int("batch.size", len(docs)),
			attribute.Int("rubric.criteria", len(rubric)),
		)

		result, err := s.Workflows.ScoreResumes(ctx, rubric, docs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "score resumes failed")
			s.writeFailure(w, err, msgInvalidScoreRequest, msgScoringFailed)
			return
		}
		if result == nil || result.Artifact == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := s.serveReport(w, result.Artifact); err != nil {
			span.RecordError(err)
			s.writeFailure(w, err, msgInvalidScoreRequest, msgScoringFailed)
			return
		}
		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("report.path", result.Artifact.Path),
		)
	}
}

// serveReport streams the CSV artifact as an attachment
func (s *Server) serveReport(w http.ResponseWriter, artifact *types.Artifact) error {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot open report %s", artifact.Path), err)
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": reportDownloadName}))
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		// headers are already sent, so the failure can only be logged
		s.Logger.LogError(err, "Failed to stream report", "path", artifact.Path)
	}
	return nil
}

// writeFailure maps err to 400 for caller mistakes and 500 otherwise
func (s *Server) writeFailure(w http.ResponseWriter, err error, clientMessage, serverMessage string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case stderrors.As(err, &maxBytesErr):
		writeErrorEnvelope(w, http.StatusRequestEntityTooLarge, msgRequestTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", maxBytesErr.Limit))
	case errors.IsClientError(err):
		s.Logger.Debug("Rejected request", "error", err.Error())
		writeErrorEnvelope(w, http.StatusBadRequest, clientMessage, err.Error())
	default:
		s.Logger.LogError(err, serverMessage)
		writeErrorEnvelope(w, http.StatusInternalServerError, serverMessage, err.Error())
	}
}

// parseMultipart parses the form, classifying malformed bodies as client errors
func parseMultipart(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemoryLimit)
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return err
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Request must be multipart/form-data", err)
}

// parseRubricField decodes the criteria form value, which must be a JSON object
func parseRubricField(values []string) (types.Rubric, error) {
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidCriteria,
			fmt.Sprintf("%q form field is required", fieldScoreCriteria), nil)
	}
	rubric, err := types.ParseRubric([]byte(values[0]))
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidCriteria,
			"criteria must be a JSON object", err)
	}
	if rubric == nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidCriteria,
			"criteria must be a JSON object", nil)
	}
	return rubric, nil
}

// readUpload loads a multipart file. A generic or missing part content type
// falls back to the file extension.
func readUpload(header *multipart.FileHeader) (types.Document, error) {
	doc := types.Document{
		Name:      header.Filename,
		MediaType: uploadMediaType(header),
	}

	f, err := header.Open()
	if err != nil {
		return doc, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("cannot open upload %s", header.Filename), err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return doc, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("cannot read upload %s", header.Filename), err)
	}
	doc.Content = data
	return doc, nil
}

// uploadMediaType returns the part's declared type. The file name is never
// consulted, so an undeclared or generic type fails the format check.
func uploadMediaType(header *multipart.FileHeader) string {
	declared := header.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
		return mediaType
	}
	return strings.TrimSpace(declared)
}
