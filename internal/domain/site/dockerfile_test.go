package site

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDockerfile(t *testing.T) {
	got := RenderDockerfile(Spec{Dir: "site", Base: "nginx:1.29-alpine", Port: 80})

	want := strings.Join([]string{
		"FROM nginx:1.29-alpine",
		"RUN rm -rf /usr/share/nginx/html/*",
		"COPY site/ /usr/share/nginx/html/",
		"EXPOSE 80",
		`CMD ["nginx", "-g", "daemon off;"]`,
		"",
	}, "\n")
	assert.Equal(t, want, string(got))
}

func TestRenderDockerfileCleansDir(t *testing.T) {
	got := string(RenderDockerfile(Spec{Dir: "public/", Base: "nginx:alpine", Port: 8080}))
	assert.Contains(t, got, "COPY public/ /usr/share/nginx/html/\n")
	assert.Contains(t, got, "EXPOSE 8080\n")
}

func TestInspectDockerfileRoundTrip(t *testing.T) {
	spec := Spec{Dir: "site", Base: "nginx:1.29-alpine", Port: 80}

	info, err := InspectDockerfile(RenderDockerfile(spec))
	require.NoError(t, err)

	assert.Equal(t, "nginx:1.29-alpine", info.Base)
	assert.Equal(t, []int{80}, info.Exposed)
	assert.Equal(t, 1, info.Copies)
	assert.True(t, info.Exposes(80))
	assert.False(t, info.Exposes(8080))
}

func TestInspectDockerfileProtoAndStages(t *testing.T) {
	content := []byte(`
FROM busybox AS assets
COPY site/ /out/

FROM nginx:alpine
COPY --from=assets /out/ /usr/share/nginx/html/
EXPOSE 80/tcp
EXPOSE 443
`)
	info, err := InspectDockerfile(content)
	require.NoError(t, err)

	assert.Equal(t, "busybox", info.Base)
	assert.Equal(t, []int{80, 443}, info.Exposed)
	assert.Equal(t, 2, info.Copies)
}

func TestInspectDockerfileRejectsGarbage(t *testing.T) {
	_, err := InspectDockerfile([]byte("COPY site/ /usr/share/nginx/html/\n"))
	require.Error(t, err, "instructions before FROM must not parse")
}

func TestInspectDockerfileEmpty(t *testing.T) {
	_, err := InspectDockerfile([]byte("# only a comment\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FROM")
}

func TestCheck(t *testing.T) {
	spec := Spec{Dir: "site", Base: "nginx:1.29-alpine", Port: 80}

	t.Run("no copies is an error", func(t *testing.T) {
		info := DockerfileInfo{Base: spec.Base, Exposed: []int{80}}
		_, err := info.Check(spec)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "COPY")
	})

	t.Run("missing expose warns", func(t *testing.T) {
		info := DockerfileInfo{Base: spec.Base, Copies: 1}
		warnings, err := info.Check(spec)
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "EXPOSE port 80")
	})

	t.Run("base mismatch warns", func(t *testing.T) {
		info := DockerfileInfo{Base: "httpd:2.4", Exposed: []int{80}, Copies: 1}
		warnings, err := info.Check(spec)
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "httpd:2.4")
	})

	t.Run("variable base does not warn", func(t *testing.T) {
		info := DockerfileInfo{Base: "${BASE}", Exposed: []int{80}, Copies: 1}
		warnings, err := info.Check(spec)
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("clean file passes", func(t *testing.T) {
		info, err := InspectDockerfile(RenderDockerfile(spec))
		require.NoError(t, err)
		warnings, err := info.Check(spec)
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})
}
