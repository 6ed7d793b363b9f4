package main

import (
	"crypto/tls"
	"net/http"

	"connectrpc.com/connect"

	"github.com/gantryhq/gantry/pkg/auth"
	"github.com/gantryhq/gantry/pkg/rpc"
)

func newClient() rpc.ControllerServiceClient {
	httpClient := http.DefaultClient
	if insecure {
		httpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}

	return rpc.NewControllerServiceClient(
		httpClient,
		controllerAddr,
		connect.WithInterceptors(auth.NewTokenInterceptor(token)),
	)
}
