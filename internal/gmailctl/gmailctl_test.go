package gmailctl

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `<?xml version='1.0' encoding='UTF-8'?>
<feed xmlns='http://www.w3.org/2005/Atom' xmlns:apps='http://schemas.google.com/apps/2006'>
  <title>Mail Filters</title>
  <entry>
    <category term='filter'></category>
    <title>Mail Filter</title>
    <content></content>
    <apps:property name='from' value='news@condos.ca'/>
    <apps:property name='label' value='ads'/>
    <apps:property name='shouldArchive' value='true'/>
  </entry>
  <entry>
    <category term='filter'></category>
    <title>Mail Filter</title>
    <content></content>
    <apps:property name='hasTheWord' value='list:deals.example.com'/>
    <apps:property name='doesNotHaveTheWord' value='receipt'/>
    <apps:property name='label' value='Ads'/>
  </entry>
  <entry>
    <category term='filter'></category>
    <title>Mail Filter</title>
    <content></content>
    <apps:property name='to' value='me+work@example.com'/>
    <apps:property name='subject' value='standup'/>
    <apps:property name='label' value='work'/>
  </entry>
</feed>`

func TestParseExport(t *testing.T) {
	export, err := ParseExport([]byte(sampleExport))
	require.NoError(t, err)
	require.Len(t, export.Filters, 3)
	assert.Equal(t, "news@condos.ca", export.Filters[0].Get("from"))
	assert.Equal(t, "", export.Filters[0].Get("to"))
}

func TestParseExportEmpty(t *testing.T) {
	_, err := ParseExport([]byte(`<feed xmlns='http://www.w3.org/2005/Atom'></feed>`))
	assert.Error(t, err)
	_, err = ParseExport([]byte(`not xml`))
	assert.Error(t, err)
}

func TestQueryForLabel(t *testing.T) {
	export, err := ParseExport([]byte(sampleExport))
	require.NoError(t, err)

	q, err := export.QueryForLabel("work")
	require.NoError(t, err)
	assert.Equal(t, "to:(me+work@example.com) subject:(standup)", q)

	q, err = export.QueryForLabel("ADS")
	require.NoError(t, err)
	assert.Equal(t, "{(from:(news@condos.ca)) ((list:deals.example.com) -(receipt))}", q)

	_, err = export.QueryForLabel("finance")
	assert.ErrorIs(t, err, ErrNoRules)
}

func TestRunnerExportFilters(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script stub")
	}
	dir := t.TempDir()
	feed := filepath.Join(dir, "feed.xml")
	require.NoError(t, os.WriteFile(feed, []byte(sampleExport), 0o600))
	bin := filepath.Join(dir, "gmailctl")
	script := "#!/bin/sh\n[ \"$1\" = \"--config\" ] && [ \"$3\" = \"export\" ] || exit 2\ncat " + feed + "\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o700))

	export, err := Runner{Binary: bin, ConfigDir: dir}.ExportFilters(context.Background())
	require.NoError(t, err)
	assert.Len(t, export.Filters, 3)
}

func TestRunnerReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script stub")
	}
	bin := filepath.Join(t.TempDir(), "gmailctl")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho 'no config found' >&2\nexit 1\n"), 0o700))

	_, err := Runner{Binary: bin}.ExportFilters(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no config found")
}

func TestRunnerQueryForLabel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script stub")
	}
	dir := t.TempDir()
	feed := filepath.Join(dir, "feed.xml")
	require.NoError(t, os.WriteFile(feed, []byte(sampleExport), 0o600))
	bin := filepath.Join(dir, "gmailctl")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\ncat "+feed+"\n"), 0o700))

	q, err := Runner{Binary: bin}.QueryForLabel(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, "to:(me+work@example.com) subject:(standup)", q)
}
