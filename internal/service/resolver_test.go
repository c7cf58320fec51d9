package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/model"
)

func docList(names ...string) []model.UserDocument {
	docs := make([]model.UserDocument, 0, len(names))
	for _, name := range names {
		docs = append(docs, model.UserDocument{User: "alice", Filename: name})
	}
	return docs
}

func TestResolveExplicitWins(t *testing.T) {
	docs := docList("a.pdf", "b.pdf")
	got := ResolveDocument("tell me about b", "a.pdf", docs, "b.pdf")
	require.Equal(t, "a.pdf", got)
}

func TestResolveSubstringMatch(t *testing.T) {
	docs := docList("report.pdf")
	got := ResolveDocument("summarize report please", "", docs, "")
	require.Equal(t, "report.pdf", got)
}

func TestResolveSubstringCaseInsensitive(t *testing.T) {
	docs := docList("Report.PDF")
	got := ResolveDocument("what does REPORT say?", "", docs, "")
	require.Equal(t, "Report.PDF", got)
}

func TestResolveFirstMatchByListOrder(t *testing.T) {
	docs := docList("notes.txt", "report.pdf")
	got := ResolveDocument("compare notes with the report", "", docs, "")
	require.Equal(t, "notes.txt", got)
}

func TestResolveActiveFallback(t *testing.T) {
	docs := docList("report.pdf")
	got := ResolveDocument("what is the capital of France?", "", docs, "x.pdf")
	require.Equal(t, "x.pdf", got)
}

func TestResolveNone(t *testing.T) {
	docs := docList("report.pdf")
	got := ResolveDocument("what is the capital of France?", "", docs, "")
	require.Equal(t, "", got)
}

func TestResolveExtensionOnlyNameNeverMatches(t *testing.T) {
	docs := docList(".txt")
	got := ResolveDocument("anything at all", "", docs, "")
	require.Equal(t, "", got)
}
