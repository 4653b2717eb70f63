package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/extract"
	"github.com/jamiechicago312/openlinks/internal/grpc/proto"
	"github.com/jamiechicago312/openlinks/internal/models"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/resolver"
)

// Форматы вывода
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// render печатает v в выбранном формате; text передаётся в текстовом режиме
func render(w io.Writer, format string, v interface{}, text func(io.Writer) error) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(w, v)
	default:
		return text(w)
	}
}

// writeYAML кодирует v через JSON, чтобы ключи и их порядок совпадали с JSON выводом
func writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatUTM(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(params))
	for _, k := range models.SortedUTMKeys(params) {
		parts = append(parts, k+"="+params[k])
	}
	return strings.Join(parts, " ")
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ",")
}

func printLink(w io.Writer, resp *proto.LinkResponse) error {
	l := resp.Link
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Slug:\t%s\n", l.Slug)
	fmt.Fprintf(tw, "Short URL:\t%s\n", resp.ShortURL)
	fmt.Fprintf(tw, "Destination:\t%s\n", l.Destination)
	fmt.Fprintf(tw, "Tags:\t%s\n", formatTags(l.Tags))
	fmt.Fprintf(tw, "UTM:\t%s\n", formatUTM(l.UTMParams))
	fmt.Fprintf(tw, "Expires:\t%s\n", formatTime(l.ExpiresAt))
	if l.RedirectAfterExpiry != "" {
		fmt.Fprintf(tw, "After expiry:\t%s\n", l.RedirectAfterExpiry)
	}
	if l.Metadata.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", l.Metadata.Description)
	}
	return tw.Flush()
}

func printLinks(w io.Writer, links []proto.LinkResponse) error {
	if len(links) == 0 {
		_, err := fmt.Fprintln(w, "No links found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tDESTINATION\tTAGS\tEXPIRES")
	for _, resp := range links {
		l := resp.Link
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.Slug, l.Destination, formatTags(l.Tags), formatTime(l.ExpiresAt))
	}
	return tw.Flush()
}

func printPlan(w io.Writer, plan *bulk.Plan) error {
	fmt.Fprintf(w, "%d link(s) match:\n", len(plan.Candidates))
	for _, l := range plan.Candidates {
		fmt.Fprintf(w, "  %s -> %s\n", l.Slug, l.Destination)
	}
	_, err := fmt.Fprintf(w, "Plan expires at %s\n", plan.ExpiresAt.UTC().Format(time.RFC3339))
	return err
}

func printResult(w io.Writer, res *bulk.Result) error {
	fmt.Fprintf(w, "Succeeded: %d\n", len(res.Succeeded))
	for _, slug := range res.Succeeded {
		fmt.Fprintf(w, "  %s\n", slug)
	}
	if len(res.Failed) == 0 {
		return nil
	}
	fmt.Fprintf(w, "Failed: %d\n", len(res.Failed))
	for _, f := range res.Failed {
		fmt.Fprintf(w, "  %s: %s\n", f.Slug, f.Reason)
	}
	return nil
}

func printResolve(w io.Writer, res *resolver.Result) error {
	if res.URL == "" {
		_, err := fmt.Fprintln(w, res.Kind)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", res.Kind, res.URL)
	return err
}

func printCandidates(w io.Writer, c *extract.Candidates) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tags:\t%s\n", formatTags(c.Tags))
	fmt.Fprintf(tw, "UTM:\t%s\n", formatUTM(c.UTMParams))
	fmt.Fprintf(tw, "Expires:\t%s\n", formatTime(c.ExpiresAt))
	return tw.Flush()
}

func printStats(w io.Writer, s *repository.Stats) error {
	_, err := fmt.Fprintf(w, "Active: %d\nExpired: %d\nArchived: %d\n", s.Active, s.Expired, s.Archived)
	return err
}
