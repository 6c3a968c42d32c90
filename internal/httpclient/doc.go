// Package httpclient is the request executor behind a barrage run.
//
// [NewRequestBuilder] validates the target, method, headers and body once;
// [RequestBuilder.Build] then stamps out an identical request per dispatch.
// [NewExecutor] pairs a builder with the client from [NewClient] and
// implements runner.Executor:
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//	exec := httpclient.NewExecutor(httpclient.NewClient(cfg.Timeout), builder,
//		httpclient.WithAcceptAnyStatus(cfg.AcceptAnyStatus))
//
// Responses outside 2xx become *runner.HTTPError failures unless
// WithAcceptAnyStatus is set. The response body is always read to the end so
// Outcome sizes reflect the full payload and connections are reused.
package httpclient
