package wsnotify

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

type (
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	// OpenConnectionParamsGetter resolves where to dial. It runs on every connection attempt, so it
	// may return fresh credentials or a different host each time.
	OpenConnectionParamsGetter func(ctx context.Context) (OpenConnectionParams, error)

	OpenConnectionParamsRepo struct {
		logger Logger
		getter OpenConnectionParamsGetter
	}
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
) (params OpenConnectionParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch open connection params: %s", err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger Logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	return OpenConnectionParamsRepo{getter: getter, logger: logger.WithField("type", "open_conn_params")}
}

// StaticOpenConnectionParams always dials endpoint with the given headers. An unparsable endpoint
// fails every attempt with ErrCannotConnect.
func StaticOpenConnectionParams(endpoint string, header http.Header) OpenConnectionParamsGetter {
	return func(context.Context) (OpenConnectionParams, error) {
		u, err := url.Parse(endpoint)
		if err != nil {
			return OpenConnectionParams{}, errors.Wrapf(ErrCannotConnect, "invalid endpoint %q: %s", endpoint, err)
		}
		return OpenConnectionParams{URL: *u, Header: header}, nil
	}
}
