package prompt

// PromptIDs contains all known prompt identifiers
var PromptIDs = struct {
	ExtractionFinancialStatement string
	CommentaryAnalysis           string
}{
	ExtractionFinancialStatement: "extraction.financial_statement",
	CommentaryAnalysis:           "commentary.analysis",
}
