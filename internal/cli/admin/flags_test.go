package admin

import (
	"bytes"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/config"
	"github.com/cloo-solutions/ragchat/internal/service"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlags_OnlyChangedFlagsOverride(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	addServerFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "9000", "--trust-proxy"}))

	cfg := config.Default()
	applyFlags(fs, cfg)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4, cfg.Server.Workers)
}

func TestServeCmd_Flags(t *testing.T) {
	cmd := ServeCmd()

	for _, name := range []string{"host", "port", "workers", "trust-proxy", "no-migrate"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestIngestCmd_Flags(t *testing.T) {
	cmd := IngestCmd()

	assert.NotNil(t, cmd.Flags().Lookup("force"))
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer

	printResult(&buf, &service.IngestionResult{Collection: "assignment", Skipped: true, Records: 12})

	assert.Equal(t, "collection \"assignment\" up to date: 12 records (extracted: false)\n", buf.String())
}
