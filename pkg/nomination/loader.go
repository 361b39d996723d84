package nomination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoaderOptions configures how definition documents are fetched.
type LoaderOptions struct {
	// FileSystem backs SourceKindFS sources.
	FileSystem fs.FS
	// HTTPClient enables SourceKindURL sources. When nil, URL sources fail.
	HTTPClient *http.Client
	// RequestTimeout bounds URL fetches when greater than zero.
	RequestTimeout time.Duration
}

// Loader fetches and decodes definition documents from files, fs.FS entries,
// or URLs. Documents may be YAML or JSON; the loader sniffs the payload.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// NewLoader constructs a Loader from pre-resolved options.
func NewLoader(options LoaderOptions) *Loader {
	client := options.HTTPClient
	if client != nil && options.RequestTimeout > 0 && client.Timeout == 0 {
		clone := *client
		clone.Timeout = options.RequestTimeout
		client = &clone
	}
	return &Loader{
		fs:      options.FileSystem,
		http:    client,
		timeout: options.RequestTimeout,
	}
}

// Load fetches the document behind src, decodes it, and validates the
// resulting definition.
func (l *Loader) Load(ctx context.Context, src Source) (Definition, error) {
	if src == nil {
		return Definition{}, errors.New("nomination loader: source is nil")
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case SourceKindURL:
		if l.http == nil {
			return Definition{}, errors.New("nomination loader: http support disabled")
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout)
	default:
		err = fmt.Errorf("nomination loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return Definition{}, err
	}

	return Parse(data)
}

// Parse decodes a YAML or JSON definition document and validates it.
func Parse(data []byte) (Definition, error) {
	if len(data) == 0 {
		return Definition{}, errors.New("nomination: definition document is empty")
	}

	var def Definition
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal(data, &def); err != nil {
			return Definition{}, fmt.Errorf("nomination: decode json definition: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return Definition{}, fmt.Errorf("nomination: decode yaml definition: %w", err)
		}
	}

	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

var knownRuleKinds = map[string]struct{}{
	RuleRequired:     {},
	RuleEmail:        {},
	RulePhone:        {},
	RuleMinLength:    {},
	RuleMaxLength:    {},
	RuleMinWords:     {},
	RulePattern:      {},
	RuleOneOf:        {},
	RuleNonEmpty:     {},
	RuleRelationship: {},
	RuleNarrative:    {},
}

// Validate checks structural invariants: a non-empty step list, unique step
// IDs, globally unique field names, and rule kinds known at load time.
func (d Definition) Validate() error {
	if d.ID == "" {
		return errors.New("nomination: definition id is required")
	}
	if len(d.Steps) == 0 {
		return errors.New("nomination: definition has no steps")
	}

	stepIDs := make(map[string]struct{}, len(d.Steps))
	fieldNames := make(map[string]struct{})
	for i, step := range d.Steps {
		if step.ID == "" {
			return fmt.Errorf("nomination: step %d is missing an id", i+1)
		}
		if _, dup := stepIDs[step.ID]; dup {
			return fmt.Errorf("nomination: duplicate step id %q", step.ID)
		}
		stepIDs[step.ID] = struct{}{}

		for _, field := range step.Fields {
			if field.Name == "" {
				return fmt.Errorf("nomination: step %q contains a field without a name", step.ID)
			}
			if _, dup := fieldNames[field.Name]; dup {
				return fmt.Errorf("nomination: field %q appears in more than one step", field.Name)
			}
			fieldNames[field.Name] = struct{}{}

			for _, rule := range field.Rules {
				if _, ok := knownRuleKinds[rule.Kind]; !ok {
					return fmt.Errorf("nomination: field %q uses unknown rule kind %q", field.Name, rule.Kind)
				}
			}
		}
	}
	return nil
}

func loadFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("nomination loader: file path is required")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func loadFromFS(ctx context.Context, filesystem fs.FS, name string) ([]byte, error) {
	if filesystem == nil {
		return nil, errors.New("nomination loader: filesystem is not configured")
	}
	if name == "" {
		return nil, errors.New("nomination loader: fs path is required")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return fs.ReadFile(filesystem, name)
}

func loadHTTP(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	if url == "" {
		return nil, errors.New("nomination loader: url is required")
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("nomination loader: unexpected status " + resp.Status)
	}

	return io.ReadAll(resp.Body)
}
