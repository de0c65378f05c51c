// Copyright (c) 2025 The RetiPool developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru"

	"github.com/retipool/retipool/log"
	"github.com/retipool/retipool/metrics"
	"github.com/retipool/retipool/registry"
	"github.com/retipool/retipool/reti"
	"github.com/retipool/retipool/xenv"
)

var logger = log.WithContext("pkg", "api")

const configCacheSize = 512

// API is the read-only HTTP surface over the registry. It never submits
// transactions; every handler reads the current state.
type API struct {
	chain       *xenv.Chain
	registry    *registry.Registry
	configCache *lru.Cache
}

func New(chain *xenv.Chain, reg *registry.Registry) *API {
	cache, _ := lru.New(configCacheSize)
	return &API{
		chain:       chain,
		registry:    reg,
		configCache: cache,
	}
}

// NewHTTPHandler assembles the router with compression and the metrics
// endpoint.
func NewHTTPHandler(chain *xenv.Chain, reg *registry.Registry) http.Handler {
	router := mux.NewRouter()
	New(chain, reg).Mount(router, "/registry")
	router.Path("/metrics").Handler(metrics.HTTPHandler())
	return handlers.CompressHandler(router)
}

// Mount attaches the API's routes under the path prefix.
func (a *API) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodGet).HandlerFunc(a.handleGetRegistry)
	sub.Path("/validators/{id}").Methods(http.MethodGet).HandlerFunc(a.handleGetValidator)
	sub.Path("/validators/{id}/config").Methods(http.MethodGet).HandlerFunc(a.handleGetConfig)
	sub.Path("/validators/{id}/pools").Methods(http.MethodGet).HandlerFunc(a.handleGetPools)
	sub.Path("/accounts/{addr}/pools").Methods(http.MethodGet).HandlerFunc(a.handleGetAccountPools)
}

func (a *API) env() *xenv.Environment {
	return xenv.New(a.chain, reti.Address{})
}

func (a *API) handleGetRegistry(w http.ResponseWriter, _ *http.Request) {
	numV, err := a.registry.GetNumValidators(a.env())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"appId":           a.registry.AppID(),
		"numValidators":   numV,
		"addValidatorMbr": registry.AddValidatorMbr,
		"addPoolMbr":      registry.AddPoolMbr,
		"addStakerMbr":    registry.AddStakerMbr,
	})
}

func (a *API) handleGetValidator(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(w, req)
	if !ok {
		return
	}
	env := a.env()
	state, err := a.registry.GetState(env, id)
	if err != nil {
		writeError(w, err)
		return
	}
	owner, manager, err := a.registry.OwnerAndManager(env, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"id":      id,
		"owner":   owner.String(),
		"manager": manager.String(),
		"state":   state,
	})
}

func (a *API) handleGetConfig(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(w, req)
	if !ok {
		return
	}
	// configs are immutable apart from rare owner edits; serve cached
	if cached, ok := a.configCache.Get(id); ok {
		writeJSON(w, cached)
		return
	}
	config, err := a.registry.GetConfig(a.env(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	a.configCache.Add(id, config)
	writeJSON(w, config)
}

func (a *API) handleGetPools(w http.ResponseWriter, req *http.Request) {
	id, ok := parseID(w, req)
	if !ok {
		return
	}
	pools, err := a.registry.GetPools(a.env(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, pools)
}

func (a *API) handleGetAccountPools(w http.ResponseWriter, req *http.Request) {
	raw := mux.Vars(req)["addr"]
	addrBytes, err := hex.DecodeString(raw)
	if err != nil || len(addrBytes) != 32 {
		http.Error(w, "malformed address", http.StatusBadRequest)
		return
	}
	keys, err := a.registry.GetStakedPoolsForAccount(a.env(), reti.BytesToAddress(addrBytes))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, keys)
}

func parseID(w http.ResponseWriter, req *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil || id == 0 {
		http.Error(w, "malformed validator id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}
