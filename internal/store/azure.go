package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
)

// AzureStore adapts Azure Blob Storage to the Store contract. Blob index
// tags back FindByTags, and etag access conditions back the Put
// preconditions.
type AzureStore struct {
	client *service.Client
}

// NewAzureStore wraps an existing service client.
func NewAzureStore(client *service.Client) *AzureStore {
	return &AzureStore{client: client}
}

// NewAzureStoreFromConnectionString builds an AzureStore from a storage
// account connection string.
func NewAzureStoreFromConnectionString(conn string) (*AzureStore, error) {
	client, err := service.NewClientFromConnectionString(conn, nil)
	if err != nil {
		return nil, fmt.Errorf("store: connect to azure: %w", err)
	}
	return &AzureStore{client: client}, nil
}

func (s *AzureStore) EnsureContainer(ctx context.Context, name string) error {
	_, err := s.client.CreateContainer(ctx, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("store: create container %s: %w", name, err)
	}
	return nil
}

func (s *AzureStore) Put(ctx context.Context, containerName, name string, data []byte, opts PutOptions) (string, error) {
	bb := s.client.NewContainerClient(containerName).NewBlockBlobClient(name)

	uploadOpts := &blockblob.UploadOptions{}
	if len(opts.Tags) > 0 {
		uploadOpts.Tags = opts.Tags
	}
	if opts.IfMatch != "" || opts.IfNoneMatch {
		conditions := &blob.ModifiedAccessConditions{}
		if opts.IfMatch != "" {
			conditions.IfMatch = to.Ptr(azcore.ETag(opts.IfMatch))
		}
		if opts.IfNoneMatch {
			conditions.IfNoneMatch = to.Ptr(azcore.ETagAny)
		}
		uploadOpts.AccessConditions = &blob.AccessConditions{ModifiedAccessConditions: conditions}
	}

	resp, err := bb.Upload(ctx, streaming.NopCloser(bytes.NewReader(data)), uploadOpts)
	switch {
	case err == nil:
	case bloberror.HasCode(err, bloberror.ConditionNotMet, bloberror.BlobAlreadyExists):
		return "", fmt.Errorf("put %s/%s: %w", containerName, name, ErrPreconditionFailed)
	case bloberror.HasCode(err, bloberror.ContainerNotFound):
		return "", fmt.Errorf("put %s/%s: %w", containerName, name, ErrContainerNotFound)
	default:
		return "", fmt.Errorf("put %s/%s: %w", containerName, name, err)
	}

	etag := ""
	if resp.ETag != nil {
		etag = string(*resp.ETag)
	}
	return etag, nil
}

func (s *AzureStore) Get(ctx context.Context, containerName, name string) (*Object, error) {
	bc := s.client.NewContainerClient(containerName).NewBlobClient(name)
	resp, err := bc.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("get %s/%s: %w", containerName, name, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", containerName, name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", containerName, name, err)
	}
	etag := ""
	if resp.ETag != nil {
		etag = string(*resp.ETag)
	}
	return &Object{Data: data, ETag: etag}, nil
}

func (s *AzureStore) Exists(ctx context.Context, containerName, name string) (bool, error) {
	bc := s.client.NewContainerClient(containerName).NewBlobClient(name)
	_, err := bc.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s/%s: %w", containerName, name, err)
	}
	return true, nil
}

func (s *AzureStore) Delete(ctx context.Context, containerName, name string) error {
	bc := s.client.NewContainerClient(containerName).NewBlobClient(name)
	_, err := bc.Delete(ctx, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return fmt.Errorf("delete %s/%s: %w", containerName, name, err)
	}
	return nil
}

func (s *AzureStore) List(ctx context.Context, containerName, prefix string) Iterator {
	cc := s.client.NewContainerClient(containerName)
	listOpts := &container.ListBlobsFlatOptions{}
	if prefix != "" {
		listOpts.Prefix = &prefix
	}
	return &azListIterator{pager: cc.NewListBlobsFlatPager(listOpts)}
}

// listPager narrows the generated pager to what the iterator needs,
// keeping the iterator testable without a live service.
type listPager interface {
	More() bool
	NextPage(ctx context.Context) (container.ListBlobsFlatResponse, error)
}

type azListIterator struct {
	pager listPager
	buf   []string
	done  bool
}

func (it *azListIterator) Next(ctx context.Context) (string, error) {
	for len(it.buf) == 0 {
		if it.done || !it.pager.More() {
			return "", ErrDone
		}
		page, err := it.pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return "", ErrDone
			}
			return "", fmt.Errorf("list page: %w", err)
		}
		if page.Segment != nil {
			for _, item := range page.Segment.BlobItems {
				if item.Name != nil {
					it.buf = append(it.buf, *item.Name)
				}
			}
		}
		if !it.pager.More() {
			it.done = true
		}
	}
	name := it.buf[0]
	it.buf = it.buf[1:]
	return name, nil
}

func (s *AzureStore) FindByTags(ctx context.Context, containerName, expr string) Iterator {
	where, err := rewriteBetween(expr)
	if err != nil {
		return NewErrIterator(err)
	}
	return &azFilterIterator{
		client: s.client.NewContainerClient(containerName),
		where:  where,
	}
}

// rewriteBetween lowers BETWEEN atoms into the two-comparison form the
// service filter dialect accepts.
func rewriteBetween(expr string) (string, error) {
	atoms, err := parseWhere(expr)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(atoms))
	for _, a := range atoms {
		switch a.op {
		case "BETWEEN":
			parts = append(parts,
				fmt.Sprintf(`"%s" >= '%s'`, a.key, quoteTagValue(a.lo)),
				fmt.Sprintf(`"%s" <= '%s'`, a.key, quoteTagValue(a.hi)))
		default:
			parts = append(parts, fmt.Sprintf(`"%s" %s '%s'`, a.key, a.op, quoteTagValue(a.lo)))
		}
	}
	return strings.Join(parts, " AND "), nil
}

func quoteTagValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

type azFilterIterator struct {
	client *container.Client
	where  string
	marker *string
	buf    []string
	done   bool
}

func (it *azFilterIterator) Next(ctx context.Context) (string, error) {
	for len(it.buf) == 0 {
		if it.done {
			return "", ErrDone
		}
		resp, err := it.client.FilterBlobs(ctx, it.where, &container.FilterBlobsOptions{Marker: it.marker})
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return "", ErrDone
			}
			return "", fmt.Errorf("filter blobs: %w", err)
		}
		for _, item := range resp.Blobs {
			if item.Name != nil {
				it.buf = append(it.buf, *item.Name)
			}
		}
		if resp.NextMarker == nil || *resp.NextMarker == "" {
			it.done = true
		} else {
			it.marker = resp.NextMarker
		}
	}
	name := it.buf[0]
	it.buf = it.buf[1:]
	return name, nil
}

func (s *AzureStore) DropContainer(ctx context.Context, name string) error {
	_, err := s.client.DeleteContainer(ctx, name, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerNotFound) {
		return fmt.Errorf("store: drop container %s: %w", name, err)
	}
	return nil
}

func (s *AzureStore) ListContainers(ctx context.Context) ([]string, error) {
	var names []string
	pager := s.client.NewListContainersPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("store: list containers: %w", err)
		}
		for _, item := range page.ContainerItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}
