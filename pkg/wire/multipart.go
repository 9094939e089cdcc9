package wire

import (
	"bytes"
	"strings"
)

// extractBoundary pulls the boundary parameter out of a multipart
// Content-Type header, honoring optional surrounding quotes (spec.md
// §4.1).
func extractBoundary(contentType string) string {
	_, params, _ := strings.Cut(contentType, ";")
	for _, p := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "boundary") {
			continue
		}
		return strings.Trim(strings.TrimSpace(value), `"`)
	}
	return ""
}

// parseMultipart splits body at "--<boundary>" delimiters and sub-parses
// each part's headers and content, per spec.md §4.1 "Form decoding". A
// part with a filename parameter becomes an UploadedFile; other
// form-data parts populate the form map. Parts whose Content-Disposition
// is not "form-data" are ignored. The "--<boundary>--" sentinel ends
// parsing.
func parseMultipart(contentType string, body []byte) (map[string]string, []UploadedFile, error) {
	boundary := extractBoundary(contentType)
	if boundary == "" {
		return nil, nil, newCodecError(ErrBadRequest, "multipart body missing boundary")
	}

	delim := []byte("--" + boundary)
	form := make(map[string]string)
	var files []UploadedFile

	parts := bytes.Split(body, delim)
	for _, part := range parts {
		part = bytes.TrimPrefix(part, []byte("\r\n"))
		if len(part) == 0 || bytes.Equal(part, []byte("--")) || bytes.HasPrefix(part, []byte("--")) {
			continue
		}
		headerBlock, content, ok := bytes.Cut(part, []byte("\r\n\r\n"))
		if !ok {
			headerBlock, content, ok = bytes.Cut(part, []byte("\n\n"))
			if !ok {
				continue
			}
		}
		content = bytes.TrimSuffix(content, []byte("\r\n"))

		disposition, fieldName, filename, partCT := parsePartHeaders(headerBlock)
		if !strings.EqualFold(disposition, "form-data") {
			continue
		}
		if filename != "" {
			if partCT == "" {
				partCT = "application/octet-stream"
			}
			files = append(files, UploadedFile{
				Filename:    filename,
				ContentType: partCT,
				Content:     content,
				Size:        int64(len(content)),
				FieldName:   fieldName,
			})
			continue
		}
		if fieldName != "" {
			form[fieldName] = string(content)
		}
	}
	return form, files, nil
}

func parsePartHeaders(block []byte) (disposition, fieldName, filename, contentType string) {
	lines := bytes.Split(block, []byte("\n"))
	for _, line := range lines {
		line = bytes.TrimRight(line, "\r")
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok {
			continue
		}
		headerName := strings.TrimSpace(string(name))
		headerValue := strings.TrimSpace(string(value))
		switch strings.ToLower(headerName) {
		case "content-disposition":
			disposition, fieldName, filename = parseContentDisposition(headerValue)
		case "content-type":
			contentType = headerValue
		}
	}
	return
}

func parseContentDisposition(value string) (disposition, fieldName, filename string) {
	segments := strings.Split(value, ";")
	if len(segments) == 0 {
		return "", "", ""
	}
	disposition = strings.TrimSpace(segments[0])
	for _, seg := range segments[1:] {
		key, val, ok := strings.Cut(strings.TrimSpace(seg), "=")
		if !ok {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			fieldName = val
		case "filename":
			filename = val
		}
	}
	return disposition, fieldName, filename
}
