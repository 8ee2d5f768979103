package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetResolveFlags(t *testing.T) {
	t.Helper()
	origFile, origCounty, origGrantees := resolveFile, resolveCounty, resolveGrantees
	origLegal, origDoc := resolveLegal, resolveDoc
	t.Cleanup(func() {
		resolveFile, resolveCounty, resolveGrantees = origFile, origCounty, origGrantees
		resolveLegal, resolveDoc = origLegal, origDoc
	})
	resolveFile, resolveCounty, resolveGrantees, resolveLegal, resolveDoc = "", "", nil, "", ""
}

func TestResolveInput_FromFlags(t *testing.T) {
	resetResolveFlags(t)
	resolveCounty = "Flagler"
	resolveGrantees = []string{"GARCIA MARIA ELENA", "GARCIA JOSE"}
	resolveLegal = "LOT 4 BLOCK 7 SEASIDE LANDING"
	resolveDoc = "2026015678"

	f, err := resolveInput()
	require.NoError(t, err)

	assert.Equal(t, "flagler", f.County)
	assert.Equal(t, "GARCIA MARIA ELENA\nGARCIA JOSE", f.GranteeBlock)
	assert.Equal(t, "LOT 4 BLOCK 7 SEASIDE LANDING", f.LegalDescription)
	assert.Equal(t, "2026015678", f.DocumentNumber)
}

func TestResolveInput_FromFile(t *testing.T) {
	resetResolveFlags(t)
	path := filepath.Join(t.TempDir(), "filing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"document_number": "2026015678",
		"county": "volusia",
		"grantee_block": "SMITH JOHN\nSMITH JANE",
		"legal_description": "LOT 9 PRIMROSE TERRACE"
	}`), 0o644))
	resolveFile = path

	f, err := resolveInput()
	require.NoError(t, err)

	assert.Equal(t, "volusia", f.County)
	assert.Equal(t, "SMITH JOHN\nSMITH JANE", f.GranteeBlock)
}

func TestResolveInput_Missing(t *testing.T) {
	resetResolveFlags(t)

	_, err := resolveInput()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --file or both --county and --grantee")
}

func TestResolveInput_FileErrors(t *testing.T) {
	resetResolveFlags(t)
	resolveFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := resolveInput()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read filing file")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	resolveFile = path

	_, err = resolveInput()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse filing file")
}
