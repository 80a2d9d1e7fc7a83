package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	t := NewTable("BRANCH NAME", "SCHEME NAME", "PRINCIPAL OS")
	t.AddRow(Row{"BRANCH NAME": Text("A"), "SCHEME NAME": Text("GOLD"), "PRINCIPAL OS": Text("100")})
	t.AddRow(Row{"BRANCH NAME": Text("B"), "SCHEME NAME": Text("SILVER"), "PRINCIPAL OS": Text("200")})
	return t
}

func TestTableMissingColumns(t *testing.T) {
	table := sampleTable()

	assert.Empty(t, table.MissingColumns("BRANCH NAME", "PRINCIPAL OS"))
	assert.Equal(t, []string{"DUE DAYS", "CUSTOMER ID"}, table.MissingColumns("DUE DAYS", "BRANCH NAME", "CUSTOMER ID"))
}

func TestTableSelectKeepsPresentColumnsInOrder(t *testing.T) {
	table := sampleTable().Select("PRINCIPAL OS", "STATE", "BRANCH NAME")

	assert.Equal(t, []string{"PRINCIPAL OS", "BRANCH NAME"}, table.Columns)
	require.Equal(t, 2, table.Len())
	_, hasScheme := table.Rows[0]["SCHEME NAME"]
	assert.False(t, hasScheme)
}

func TestTableTransformsDoNotMutateSource(t *testing.T) {
	source := sampleTable()

	renamed := source.RenameColumn("PRINCIPAL OS", "AMOUNT")
	withFlag := source.WithColumn("FLAG", func(Row) Value { return Text("Y") })
	filtered := source.Filter(func(r Row) bool { return r.Get("BRANCH NAME").String() == "B" })

	assert.Equal(t, []string{"BRANCH NAME", "SCHEME NAME", "PRINCIPAL OS"}, source.Columns)
	assert.Equal(t, "100", source.Rows[0].Get("PRINCIPAL OS").String())
	assert.True(t, source.Rows[0].Get("FLAG").IsNull())

	assert.Equal(t, "100", renamed.Rows[0].Get("AMOUNT").String())
	assert.Equal(t, "FLAG", withFlag.Columns[3])
	assert.Equal(t, 1, filtered.Len())
}

func TestTableRenameColumns(t *testing.T) {
	table := NewTable(" branch name ", "Due Days")
	table.AddRow(Row{" branch name ": Text("A"), "Due Days": Text("31")})

	normalized := table.RenameColumns(func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) })

	assert.Equal(t, []string{"BRANCH NAME", "DUE DAYS"}, normalized.Columns)
	assert.Equal(t, "31", normalized.Rows[0].Get("DUE DAYS").String())
}

func TestTableRecords(t *testing.T) {
	table := NewTable("A", "B")
	table.AddRow(Row{"A": Text("x")})

	assert.Equal(t, [][]string{{"A", "B"}, {"x", ""}}, table.Records())
}
