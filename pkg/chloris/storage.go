package chloris

import "context"

// uploadObject writes body to the user files bucket. If the write fails
// because the delegated credentials expired mid-upload, the credentials are
// re-derived and the write retried exactly once.
func (c *Client) uploadObject(ctx context.Context, key string, body []byte, metadata map[string]string) error {
	creds, err := c.temporaryCredentials(ctx)
	if err != nil {
		return err
	}
	err = c.backends.Store.Put(ctx, creds, c.env.UserFilesBucket, key, body, metadata)
	if err == nil {
		return nil
	}
	if !IsKind(err, KindExpiredCredentials) {
		return wrapStorageErr(err, "put "+key)
	}
	creds, cerr := c.refreshedCredentials(ctx)
	if cerr != nil {
		return cerr
	}
	if err := c.backends.Store.Put(ctx, creds, c.env.UserFilesBucket, key, body, metadata); err != nil {
		return wrapStorageErr(err, "put "+key)
	}
	return nil
}

// uploadFile uploads a local file to the user files bucket, with the same
// expired-credential retry rule as uploadObject.
func (c *Client) uploadFile(ctx context.Context, key, filePath string, metadata map[string]string) error {
	creds, err := c.temporaryCredentials(ctx)
	if err != nil {
		return err
	}
	err = c.backends.Store.PutFile(ctx, creds, c.env.UserFilesBucket, key, filePath, metadata)
	if err == nil {
		return nil
	}
	if !IsKind(err, KindExpiredCredentials) {
		return wrapStorageErr(err, "put "+key)
	}
	creds, cerr := c.refreshedCredentials(ctx)
	if cerr != nil {
		return cerr
	}
	if err := c.backends.Store.PutFile(ctx, creds, c.env.UserFilesBucket, key, filePath, metadata); err != nil {
		return wrapStorageErr(err, "put "+key)
	}
	return nil
}

// downloadObject reads object bytes from the user files bucket. Missing
// objects surface as not_found kind errors.
func (c *Client) downloadObject(ctx context.Context, key string) ([]byte, error) {
	creds, err := c.temporaryCredentials(ctx)
	if err != nil {
		return nil, err
	}
	data, err := c.backends.Store.Get(ctx, creds, c.env.UserFilesBucket, key)
	if err != nil {
		return nil, wrapStorageErr(err, "get "+key)
	}
	return data, nil
}

// headObjectMetadata reads the metadata map for an object in the user files
// bucket. Missing objects surface as not_found kind errors; the orchestrator
// treats those as "still processing" while polling.
func (c *Client) headObjectMetadata(ctx context.Context, key string) (map[string]string, error) {
	creds, err := c.temporaryCredentials(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := c.backends.Store.HeadMetadata(ctx, creds, c.env.UserFilesBucket, key)
	if err != nil {
		return nil, wrapStorageErr(err, "head "+key)
	}
	return meta, nil
}

// refreshedCredentials forces a credential re-exchange.
func (c *Client) refreshedCredentials(ctx context.Context) (*TemporaryCredentials, error) {
	c.invalidateCredentials()
	return c.temporaryCredentials(ctx)
}

// wrapStorageErr wraps backend errors as storage errors while passing
// not_found through untouched.
func wrapStorageErr(err error, op string) error {
	if IsKind(err, KindNotFound) {
		return err
	}
	return ErrStorage("object store operation failed").WithOperation(op).WithCause(err)
}
