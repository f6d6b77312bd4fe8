package registry

import (
	"os"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
	"go.uber.org/zap"
)

// getAllProtoInfo uses DFS to collect a proto file and everything it imports.
func (r *Registry) getAllProtoInfo(protoFile string) ([]string, error) {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	result := make([]string, 0)

	var dfs func(protoFile string) error
	dfs = func(protoFile string) error {
		if _, ok := visited[protoFile]; ok {
			return nil
		}
		visited[protoFile] = struct{}{}
		result = append(result, protoFile)

		f, err := os.Open(protoFile)
		if err != nil {
			return err
		}
		defer f.Close()

		parsedBody, err := protoparser.Parse(f, protoparser.WithFilename(protoFile))
		if err != nil {
			return errors.Wrapf(err, "failed to parse %s", protoFile)
		}
		for _, body := range parsedBody.ProtoBody {
			imp, ok := body.(*protoparserparser.Import)
			if !ok {
				continue
			}
			importPath := strings.Trim(imp.Location, `"`)
			// Well-known types are not shipped with the loader.
			if strings.HasPrefix(importPath, "google/protobuf/") {
				r.logger.Debug("skipping well-known import", zap.String("import", importPath))
				continue
			}
			fullImportPath, err := r.findIfProtoExists(importPath)
			if err != nil {
				return err
			}
			if err = dfs(fullImportPath); err != nil {
				return err
			}
		}
		return nil
	}

	protoPath, err := r.findIfProtoExists(protoFile)
	if err != nil {
		if _, statErr := os.Stat(protoFile); statErr != nil {
			return nil, err
		}
		protoPath = protoFile
	}
	if err := dfs(protoPath); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Registry) findIfProtoExists(protoPath string) (string, error) {
	var (
		fullPath      string
		fullProtoPath string
		err           error
	)
	protoPath = strings.Trim(protoPath, `"`)
	for _, dir := range r.ProtoDirectories {
		fullPath = path.Join(dir, protoPath)
		if _, err = os.Stat(fullPath); err == nil {
			fullProtoPath = fullPath
			break
		}
	}
	if fullProtoPath == "" {
		return "", errors.Wrapf(err, "path does not exist: %s", fullPath)
	}
	if !strings.HasSuffix(fullProtoPath, ".proto") {
		return "", errors.Newf("is not a .proto file %s", fullPath)
	}
	return fullProtoPath, nil
}

/*
getReferencedType returns the fully qualified name for a referenced type, be it
top-level, nested or imported. Resolution follows the scoping rules of
descriptor.proto: innermost scope first, then each enclosing scope.
*/
func getReferencedType(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, error) {
	// fully qualified names start with a dot
	if strings.HasPrefix(typeName, ".") {
		return getFullyQualifiedType(typeName, allResolvedEntities)
	}
	// try resolving from inner entities up till the parent package
	if result, ok := splitNameAndCheck(typeName, prefix, allResolvedEntities); ok {
		return result, nil
	}
	// the entity is referenced via its package name
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", errors.Newf("unable to resolve type name: %s", typeName)
}

// splitNameAndCheck appends typeName to each enclosing scope of prefix, innermost
// first, and returns the first name that exists.
func splitNameAndCheck(typeName, prefix string, allResolvedEntities map[string]struct{}) (string, bool) {
	prefixSplit := strings.Split(prefix, ".")

	for len(prefixSplit) > 0 && prefixSplit[0] != "" {
		entityName := strings.Join(prefixSplit, ".") + "." + typeName
		if _, ok := allResolvedEntities[entityName]; ok {
			return entityName, true
		}
		// go one level up to the outer entity
		prefixSplit = prefixSplit[:len(prefixSplit)-1]
	}
	return "", false
}

func getFullyQualifiedType(typeName string, allResolvedEntities map[string]struct{}) (string, error) {
	typeName = strings.TrimPrefix(typeName, ".")
	if _, ok := allResolvedEntities[typeName]; ok {
		return typeName, nil
	}
	return "", errors.Newf("unable to resolve fully qualified type name: .%s", typeName)
}
