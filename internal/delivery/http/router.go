package http

import "net/http"

// Register mounts the API routes on mux.
func Register(mux *http.ServeMux, channels *ChannelHandler, tokens *TokenHandler) {
	mux.HandleFunc("/api/channel/compute", channels.HandleCompute)
	mux.HandleFunc("/api/channel/evaluate", channels.HandleEvaluate)
	mux.HandleFunc("/api/channel", channels.HandleChannel)
	mux.HandleFunc("/api/channels", channels.HandleListChannels)

	mux.HandleFunc("/api/tokens/register", tokens.HandleRegisterToken)
	mux.HandleFunc("/api/tokens/unregister", tokens.HandleUnregisterToken)
	mux.HandleFunc("/api/tokens/count", tokens.HandleGetTokenCount)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
