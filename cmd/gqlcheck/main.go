package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gqlcheck/internal/check"
	"gqlcheck/internal/graphql"
)

func main() {
	endpoint := flag.String("url", envOr("GRAPHQL_URL", ""), "GraphQL endpoint URL")
	auth := flag.String("auth", envOr("GRAPHQL_AUTH_HEADER", ""), "Authorization header in `name: value` form (empty = no credential)")
	subgraphInput := flag.String("subgraph", envOr("GRAPHQL_SUBGRAPH", "false"), "Whether the endpoint must be a federation subgraph: true|false")
	insecureInput := flag.String("insecure-subgraph", envOr("GRAPHQL_INSECURE_SUBGRAPH", "false"), "Whether the subgraph may accept unauthenticated requests: true|false")
	introspectionInput := flag.String("allow-introspection", envOr("GRAPHQL_ALLOW_INTROSPECTION", ""), "Whether schema introspection may be exposed: true|false (empty = derive from subgraph)")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout per probe")
	format := flag.String("format", "text", "Output format: text|json")
	outputPath := flag.String("out", "", "Write the report JSON to this file")
	flag.Parse()

	if strings.TrimSpace(*endpoint) == "" {
		exitWith("GRAPHQL_URL or -url is required")
	}

	// Bad boolean inputs become findings instead of aborting: the checks
	// still run with the false default so one pass reports everything.
	inputFindings := []check.Finding{}
	subgraphRequired, finding := check.ParseBool(*subgraphInput, "subgraph")
	if finding != nil {
		inputFindings = append(inputFindings, *finding)
	}
	allowInsecure, finding := check.ParseBool(*insecureInput, "insecure_subgraph")
	if finding != nil {
		inputFindings = append(inputFindings, *finding)
	}
	subgraphPolicy := check.SubgraphPolicyFor(subgraphRequired, allowInsecure)
	introspectionPolicy, finding := check.IntrospectionPolicyFrom(*introspectionInput, subgraphPolicy)
	if finding != nil {
		inputFindings = append(inputFindings, *finding)
	}

	client := graphql.NewClient(graphql.Config{
		Timeout:   *timeout,
		UserAgent: "gqlcheck",
	})
	cred := graphql.NewCredential(*auth)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout*4)
	defer cancel()

	report := check.NewReport()
	for _, f := range inputFindings {
		report.Add(f)
	}
	for _, f := range check.Run(ctx, client, *endpoint, cred, subgraphPolicy, introspectionPolicy).Findings() {
		report.Add(f)
	}

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "json":
		printJSON(*endpoint, report)
	default:
		printText(*endpoint, report)
	}

	if strings.TrimSpace(*outputPath) != "" {
		if err := writeReport(*outputPath, *endpoint, report); err != nil {
			exitWith("failed to write report: " + err.Error())
		}
	}

	if report.Empty() {
		return
	}
	if githubOutput := strings.TrimSpace(os.Getenv("GITHUB_OUTPUT")); githubOutput != "" {
		if err := appendGitHubOutput(githubOutput, report.String()); err != nil {
			exitWith("failed to write GITHUB_OUTPUT: " + err.Error())
		}
	}
	os.Exit(1)
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

type reportDocument struct {
	Endpoint string            `json:"endpoint"`
	Passed   bool              `json:"passed"`
	Findings []findingDocument `json:"findings"`
}

type findingDocument struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	Field      string `json:"field,omitempty"`
}

func buildDocument(endpoint string, report *check.Report) reportDocument {
	doc := reportDocument{
		Endpoint: endpoint,
		Passed:   report.Empty(),
		Findings: []findingDocument{},
	}
	for _, f := range report.Findings() {
		doc.Findings = append(doc.Findings, findingDocument{
			Kind:       f.Kind.String(),
			Message:    f.String(),
			StatusCode: f.StatusCode,
			Field:      f.Field,
		})
	}
	return doc
}

func printText(endpoint string, report *check.Report) {
	if report.Empty() {
		fmt.Printf("OK: %s passed all checks\n", endpoint)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", report.String())
}

func printJSON(endpoint string, report *check.Report) {
	data, err := json.MarshalIndent(buildDocument(endpoint, report), "", "  ")
	if err != nil {
		exitWith("failed to encode report JSON: " + err.Error())
	}
	fmt.Println(string(data))
}

func writeReport(path, endpoint string, report *check.Report) error {
	data, err := json.MarshalIndent(buildDocument(endpoint, report), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(path), data, 0o644)
}

// appendGitHubOutput records the joined finding messages for the workflow
// step that invoked the check, in the `key=value` format GitHub expects.
func appendGitHubOutput(path, message string) error {
	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = fmt.Fprintf(file, "error=%s\n", message)
	return err
}

func exitWith(message string) {
	fmt.Fprintln(os.Stderr, "error:", message)
	os.Exit(2)
}
