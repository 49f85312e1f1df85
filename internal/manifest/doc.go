// Package manifest loads batch manifests. A manifest lists several
// repositories to crawl in one run, each with its own reference, pattern
// and size settings.
//
// # Manifest Format
//
// Manifests can be written in YAML or JSON format:
//
//	sources:
//	  - url: https://gitlab.com/group/project/-/tree/main/src
//	    include: ["*.go"]
//	    exclude: ["*_test.go"]
//	    max_file_size: 512KB
//	  - url: https://github.com/org/repo
//	    ref: v1.2.0
//	    relative_paths: false
//	options:
//	  continue_on_error: true
//	  output: ./crawls
//	  format: yaml
//
// # Usage
//
//	loader := manifest.NewLoader()
//	cfg, err := loader.Load("sources.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, source := range cfg.Sources {
//	    // Crawl each source
//	}
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - ErrNoSources: manifest has no sources defined
//   - ErrEmptyURL: source is missing required URL field
//   - ErrInvalidSize: max_file_size does not parse
//   - ErrInvalidFormat: file is not valid YAML/JSON
//   - ErrFileNotFound: manifest file does not exist
//   - ErrUnsupportedExt: unsupported file extension
package manifest
