package service

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/foomo/docserver/scrape"
	"github.com/foomo/docserver/service/vo"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	pageExtension      = ".html"
	indexFileName      = "index.json"
	categoriesFileName = "categories.json"
	recommendedDirName = "recommended"
)

// Service resolves documentation identity keys to content on the docs filesystem.
type Service interface {
	GetFile(ctx context.Context, version, language string, docType vo.DocType, folder, name string) (*vo.DocumentationFile, error)
	GetFiles(ctx context.Context, version, language string, docType vo.DocType, folder string) ([]string, error)
	GetDefaultFile(ctx context.Context, version, language string, docType vo.DocType, folder string) (*vo.DefaultFile, error)
	GetIndex(ctx context.Context, version, language string, docType vo.DocType) ([]vo.IndexItem, error)
	GetCategories(ctx context.Context, version, language string, docType vo.DocType) ([]vo.FolderItem, error)
	GetRecommendedItems(ctx context.Context, language string, docType vo.DocType) ([]vo.RecommendedItem, error)
	GetPage(ctx context.Context, version, language string, docType vo.DocType, folder, name string) (*vo.Page, error)
}

type Settings struct {
	// Root is the directory holding <version>/<language>/<type> trees and recommended/.
	Root string
	// ContentSelector picks the element rendered by GetPage. Defaults to "body".
	ContentSelector string
}

type service struct {
	fs       afero.Fs
	settings Settings
	logger   *zap.Logger
}

func NewService(fs afero.Fs, settings Settings, logger *zap.Logger) Service {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.ContentSelector == "" {
		settings.ContentSelector = "body"
	}
	return &service{
		fs:       fs,
		settings: settings,
		logger:   logger,
	}
}

// isValidSegment rejects anything that could leave the docs root or name a directory itself.
func isValidSegment(segment string) bool {
	return segment != "" &&
		segment != "." &&
		!strings.Contains(segment, "..") &&
		!strings.ContainsAny(segment, `/\`) &&
		!strings.ContainsRune(segment, 0)
}

func (s *service) typeDir(version, language string, docType vo.DocType) (string, error) {
	if _, ok := vo.ParseDocType(string(docType)); !ok {
		return "", notFound("unknown doc type %q", docType)
	}
	for _, segment := range []string{version, language} {
		if !isValidSegment(segment) {
			return "", notFound("invalid path segment %q", segment)
		}
	}
	return filepath.Join(s.settings.Root, version, language, string(docType)), nil
}

func (s *service) folderDir(version, language string, docType vo.DocType, folder string) (string, error) {
	dir, err := s.typeDir(version, language, docType)
	if err != nil {
		return "", err
	}
	if !isValidSegment(folder) {
		return "", notFound("invalid folder %q", folder)
	}
	return filepath.Join(dir, folder), nil
}

func (s *service) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, serverError(err)
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound("file %s", path)
		}
		s.logger.Error("failed to read documentation file", zap.String("path", path), zap.Error(err))
		return nil, serverError(errors.Wrapf(err, "failed to read file %s", path))
	}
	return data, nil
}

// readList decodes a JSON array file. A missing file is an empty result, not an error.
func readList[T any](ctx context.Context, s *service, path string) ([]T, error) {
	data, err := s.readFile(ctx, path)
	if err != nil {
		if IsNotFound(err) {
			return []T{}, nil
		}
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Error("failed to decode documentation metadata", zap.String("path", path), zap.Error(err))
		return nil, serverError(errors.Wrapf(err, "failed to decode %s", path))
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (s *service) GetFile(ctx context.Context, version, language string, docType vo.DocType, folder, name string) (*vo.DocumentationFile, error) {
	dir, err := s.folderDir(version, language, docType, folder)
	if err != nil {
		return nil, err
	}
	if !isValidSegment(name) {
		return nil, notFound("invalid page name %q", name)
	}
	data, err := s.readFile(ctx, filepath.Join(dir, name+pageExtension))
	if err != nil {
		return nil, err
	}
	return &vo.DocumentationFile{File: string(data)}, nil
}

func (s *service) GetFiles(ctx context.Context, version, language string, docType vo.DocType, folder string) ([]string, error) {
	dir, err := s.folderDir(version, language, docType, folder)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, serverError(err)
	}
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound("folder %s", dir)
		}
		s.logger.Error("failed to list documentation folder", zap.String("path", dir), zap.Error(err))
		return nil, serverError(errors.Wrapf(err, "failed to list %s", dir))
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), pageExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), pageExtension))
	}
	slices.Sort(names)
	return names, nil
}

func (s *service) GetDefaultFile(ctx context.Context, version, language string, docType vo.DocType, folder string) (*vo.DefaultFile, error) {
	if _, err := s.folderDir(version, language, docType, folder); err != nil {
		return nil, err
	}
	index, err := s.GetIndex(ctx, version, language, docType)
	if err != nil {
		return nil, err
	}

	var name string
	for _, item := range index {
		if item.Category == folder && len(item.Children) > 0 {
			name = item.Children[0]
			break
		}
	}
	if name == "" {
		names, err := s.GetFiles(ctx, version, language, docType, folder)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, notFound("folder %s has no pages", folder)
		}
		name = names[0]
	}

	file, err := s.GetFile(ctx, version, language, docType, folder, name)
	if err != nil {
		return nil, err
	}
	return &vo.DefaultFile{Name: name, File: file.File}, nil
}

func (s *service) GetIndex(ctx context.Context, version, language string, docType vo.DocType) ([]vo.IndexItem, error) {
	dir, err := s.typeDir(version, language, docType)
	if err != nil {
		return nil, err
	}
	return readList[vo.IndexItem](ctx, s, filepath.Join(dir, indexFileName))
}

func (s *service) GetCategories(ctx context.Context, version, language string, docType vo.DocType) ([]vo.FolderItem, error) {
	dir, err := s.typeDir(version, language, docType)
	if err != nil {
		return nil, err
	}
	return readList[vo.FolderItem](ctx, s, filepath.Join(dir, categoriesFileName))
}

func (s *service) GetRecommendedItems(ctx context.Context, language string, docType vo.DocType) ([]vo.RecommendedItem, error) {
	if _, ok := vo.ParseDocType(string(docType)); !ok {
		return nil, notFound("unknown doc type %q", docType)
	}
	if !isValidSegment(language) {
		return nil, notFound("invalid path segment %q", language)
	}
	path := filepath.Join(s.settings.Root, recommendedDirName, language, string(docType)+".json")
	return readList[vo.RecommendedItem](ctx, s, path)
}

func (s *service) GetPage(ctx context.Context, version, language string, docType vo.DocType, folder, name string) (*vo.Page, error) {
	file, err := s.GetFile(ctx, version, language, docType, folder, name)
	if err != nil {
		return nil, err
	}
	summary, markdown, err := scrape.Scrape(strings.NewReader(file.File), s.settings.ContentSelector)
	if err != nil {
		return nil, serverError(errors.Wrapf(err, "failed to render %s/%s", folder, name))
	}
	if summary.Title == "" {
		summary.Title = strings.ReplaceAll(name, "_", " ")
	}
	return &vo.Page{Summary: *summary, Markdown: markdown}, nil
}
