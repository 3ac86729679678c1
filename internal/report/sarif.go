package report

import (
	"encoding/json"
	"io"
	"net/url"
	"path/filepath"

	"a11ygraph/internal/diag"
	"a11ygraph/internal/issue"
	"a11ygraph/internal/source"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRule struct {
	ID                   string          `json:"id"`
	ShortDescription     sarifText       `json:"shortDescription"`
	DefaultConfiguration sarifRuleConfig `json:"defaultConfiguration"`
	Properties           *sarifRuleProps `json:"properties,omitempty"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifRuleProps struct {
	Tags []string `json:"tags,omitempty"`
}

type sarifInvocation struct {
	ExecutionSuccessful        bool                `json:"executionSuccessful"`
	Arguments                  []string            `json:"arguments,omitempty"`
	ToolExecutionNotifications []sarifNotification `json:"toolExecutionNotifications,omitempty"`
}

type sarifNotification struct {
	Level      string          `json:"level"`
	Message    sarifText       `json:"message"`
	Descriptor *sarifReference `json:"descriptor,omitempty"`
	Locations  []sarifLocation `json:"locations,omitempty"`
}

type sarifReference struct {
	ID string `json:"id"`
}

type sarifResult struct {
	RuleID           string            `json:"ruleId"`
	Level            string            `json:"level"`
	Message          sarifText         `json:"message"`
	Locations        []sarifLocation   `json:"locations"`
	RelatedLocations []sarifLocation   `json:"relatedLocations,omitempty"`
	Fixes            []sarifFix        `json:"fixes,omitempty"`
	Properties       map[string]any    `json:"properties,omitempty"`
	Fingerprints     map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifLocation struct {
	ID               int                   `json:"id,omitempty"`
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           *sarifRegion  `json:"region,omitempty"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine,omitempty"`
	StartColumn uint32 `json:"startColumn,omitempty"`
	EndLine     uint32 `json:"endLine,omitempty"`
	EndColumn   uint32 `json:"endColumn,omitempty"`
	ByteOffset  uint32 `json:"byteOffset"`
	ByteLength  uint32 `json:"byteLength"`
}

type sarifFix struct {
	Description     sarifText             `json:"description"`
	ArtifactChanges []sarifArtifactChange `json:"artifactChanges"`
}

type sarifArtifactChange struct {
	ArtifactLocation sarifArtifact      `json:"artifactLocation"`
	Replacements     []sarifReplacement `json:"replacements"`
}

type sarifReplacement struct {
	DeletedRegion   sarifRegion `json:"deletedRegion"`
	InsertedContent *sarifText  `json:"insertedContent,omitempty"`
}

func sarifLevel(sev diag.Severity) string {
	switch {
	case sev >= diag.SevError:
		return "error"
	case sev == diag.SevWarning:
		return "warning"
	default:
		return "note"
	}
}

// artifactURI renders a path as a relative URI reference when it lies under
// the base directory and as a file URI otherwise.
func artifactURI(fs *source.FileSet, f *source.File) string {
	if f.Flags&source.FileVirtual != 0 && !filepath.IsAbs(f.Path) {
		return filepath.ToSlash(f.Path)
	}
	rel := f.FormatPath("relative", fs.BaseDir())
	if !filepath.IsAbs(rel) {
		return (&url.URL{Path: filepath.ToSlash(rel)}).String()
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(rel)}).String()
}

func sarifLoc(fs *source.FileSet, sp source.Span) (sarifLocation, bool) {
	if fs == nil {
		return sarifLocation{}, false
	}
	f := fs.Get(sp.File)
	if f == nil {
		return sarifLocation{}, false
	}
	start, end := fs.Resolve(sp)
	return sarifLocation{PhysicalLocation: sarifPhysicalLocation{
		ArtifactLocation: sarifArtifact{URI: artifactURI(fs, f)},
		Region: &sarifRegion{
			StartLine:   start.Line,
			StartColumn: start.Col,
			EndLine:     end.Line,
			EndColumn:   end.Col,
			ByteOffset:  sp.Start,
			ByteLength:  sp.Len(),
		},
	}}, true
}

func sarifFixOf(fs *source.FileSet, f *issue.Fix) (sarifFix, bool) {
	byFile := make(map[source.FileID]int)
	out := sarifFix{Description: sarifText{Text: f.Title}}
	for _, e := range f.Edits {
		file := fs.Get(e.Span.File)
		if file == nil {
			return sarifFix{}, false
		}
		idx, ok := byFile[e.Span.File]
		if !ok {
			idx = len(out.ArtifactChanges)
			byFile[e.Span.File] = idx
			out.ArtifactChanges = append(out.ArtifactChanges, sarifArtifactChange{
				ArtifactLocation: sarifArtifact{URI: artifactURI(fs, file)},
			})
		}
		r := sarifReplacement{DeletedRegion: sarifRegion{ByteOffset: e.Span.Start, ByteLength: e.Span.Len()}}
		if e.NewText != "" {
			r.InsertedContent = &sarifText{Text: e.NewText}
		}
		out.ArtifactChanges[idx].Replacements = append(out.ArtifactChanges[idx].Replacements, r)
	}
	return out, len(out.ArtifactChanges) > 0
}

// BuildSarif builds the SARIF log without serializing it.
func BuildSarif(data Data, meta SarifRunMeta) sarifLog {
	name := meta.ToolName
	if name == "" {
		name = "a11ygraph"
	}
	drv := sarifDriver{Name: name, Version: meta.ToolVersion, InformationURI: meta.InformationURI}
	for _, info := range meta.Rules {
		r := sarifRule{
			ID:                   info.Name,
			ShortDescription:     sarifText{Text: info.Summary},
			DefaultConfiguration: sarifRuleConfig{Level: sarifLevel(info.Severity)},
		}
		if refs := meta.Refs[info.Name]; len(refs) > 0 {
			r.Properties = &sarifRuleProps{Tags: refs}
		}
		drv.Rules = append(drv.Rules, r)
	}

	run := sarifRun{Tool: sarifTool{Driver: drv}, Results: make([]sarifResult, 0, len(data.Issues))}
	for _, is := range data.Issues {
		res := sarifResult{
			RuleID:  is.Type,
			Level:   sarifLevel(is.Severity),
			Message: sarifText{Text: is.Message},
			Properties: map[string]any{
				"confidence":       is.Confidence.Level.String(),
				"confidenceReason": is.Confidence.Reason,
				"treeCompleteness": is.Confidence.TreeCompleteness,
			},
		}
		if len(is.StandardsRefs) > 0 {
			res.Properties["standards"] = is.StandardsRefs
		}
		if is.Subject != "" {
			res.Fingerprints = map[string]string{"subject/v1": is.Type + ":" + is.Subject}
		}
		for i, sp := range is.Locations {
			loc, ok := sarifLoc(data.Files, sp)
			if !ok {
				continue
			}
			if i == 0 {
				res.Locations = append(res.Locations, loc)
				continue
			}
			loc.ID = i
			res.RelatedLocations = append(res.RelatedLocations, loc)
		}
		if res.Locations == nil {
			res.Locations = []sarifLocation{}
		}
		if is.Fix != nil {
			if fx, ok := sarifFixOf(data.Files, is.Fix); ok {
				res.Fixes = []sarifFix{fx}
			}
		}
		run.Results = append(run.Results, res)
	}

	inv := sarifInvocation{ExecutionSuccessful: len(data.Faults) == 0, Arguments: meta.InvocationArgs}
	for _, d := range data.Diagnostics {
		if d.Code == diag.ObsTimings {
			continue
		}
		n := sarifNotification{
			Level:      sarifLevel(d.Severity),
			Message:    sarifText{Text: d.Message},
			Descriptor: &sarifReference{ID: d.Code.ID()},
		}
		if d.Code.Located() {
			if loc, ok := sarifLoc(data.Files, d.Primary); ok {
				n.Locations = []sarifLocation{loc}
			}
		}
		inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, n)
	}
	for _, f := range data.Faults {
		inv.ToolExecutionNotifications = append(inv.ToolExecutionNotifications, sarifNotification{
			Level:      "error",
			Message:    sarifText{Text: f.Error()},
			Descriptor: &sarifReference{ID: f.Analyzer},
		})
	}
	run.Invocations = []sarifInvocation{inv}

	return sarifLog{Version: sarifVersion, Schema: sarifSchema, Runs: []sarifRun{run}}
}

// Sarif форматирует находки в SARIF 2.1.0.
func Sarif(w io.Writer, data Data, meta SarifRunMeta) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(BuildSarif(data, meta))
}
