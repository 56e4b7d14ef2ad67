package sarif

// SARIF 2.1.0 subset produced by the blocksecops CLI. Only the fields the
// front ends consume are modeled; unknown fields are ignored by the
// decoder.

// Report is the root SARIF document.
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`
}

// Run represents a single tool invocation's results.
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool describes the tool that produced the results.
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver describes the tool driver.
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// Rule describes a detection rule. Rule metadata is only a fallback
// source for a finding's message.
type Rule struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ShortDescription Message `json:"shortDescription"`
	FullDescription  Message `json:"fullDescription"`
	HelpURI          string  `json:"helpUri"`
}

// Message is a SARIF message.
type Message struct {
	Text string `json:"text"`
}

// Result is a single reported issue before location resolution.
type Result struct {
	RuleID    string     `json:"ruleId"`
	Level     string     `json:"level"`
	Message   Message    `json:"message"`
	Locations []Location `json:"locations"`
}

// Location is one physical site of a result.
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation is a physical file location.
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           *Region          `json:"region"`
}

// ArtifactLocation is an artifact location. The URI may carry a file://
// scheme prefix.
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region is a region within a file. All positions are 1-based; a zero
// value means the field was absent and takes its documented default.
type Region struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}
