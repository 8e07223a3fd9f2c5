package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"CommodityDashboard/src/processor"
	"CommodityDashboard/src/storage"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed index.html
var indexHTML string

var ErrUnknownChart = errors.New("unknown chart")

// Server 看板的 HTTP 层, 每个请求都在当前快照上重新计算
type Server struct {
	store    *processor.Store
	binder   *processor.Binder
	logger   *storage.Logger
	exporter *storage.Exporter
	page     *template.Template
}

func NewServer(store *processor.Store, logger *storage.Logger, exporter *storage.Exporter) (*Server, error) {
	page, err := template.New("index").Parse(indexHTML)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Server{
		store:    store,
		binder:   processor.NewDashboard(store),
		logger:   logger,
		exporter: exporter,
		page:     page,
	}, nil
}

// Router 注册所有路由
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware)

	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/api/options", s.options).Methods(http.MethodGet)
	r.HandleFunc("/api/charts", s.charts).Methods(http.MethodGet)
	r.HandleFunc("/api/charts/{id}.png", s.chartPNG).Methods(http.MethodGet)
	r.HandleFunc("/api/specs", s.specs).Methods(http.MethodGet)
	r.HandleFunc("/api/export", s.export).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.logs).Methods(http.MethodGet)
	return r
}

// ListenAndServe 阻塞直到 ctx 结束, 然后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	s.logger.Info("dashboard listening", zap.String("addr", addr))

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type pageData struct {
	Regions     []string
	Commodities []string
	Selection   processor.Selection
	Views       []string
	Options     map[string]interface{}
	Rows        int
	Source      string
	LoadedAt    string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	table, sel, ok := s.selection(w, r)
	if !ok {
		return
	}

	specs, err := s.binder.Render(sel)
	if err != nil {
		s.httpError(w, r, http.StatusServiceUnavailable, err)
		return
	}

	options := make(map[string]interface{}, len(specs))
	for _, spec := range specs {
		options[spec.ID] = EChartsOptions(spec)
	}

	var buf bytes.Buffer
	err = s.page.Execute(&buf, pageData{
		Regions:     table.Regions(),
		Commodities: table.Commodities(),
		Selection:   sel,
		Views:       s.binder.Views(),
		Options:     options,
		Rows:        table.Len(),
		Source:      table.Source(),
		LoadedAt:    table.LoadedAt().Format("2006-01-02 15:04:05"),
	})
	if err != nil {
		s.httpError(w, r, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

type optionsResponse struct {
	Regions     []string `json:"regions"`
	Commodities []string `json:"commodities"`
}

func (s *Server) options(w http.ResponseWriter, r *http.Request) {
	table, _, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, optionsResponse{Regions: table.Regions(), Commodities: table.Commodities()})
}

// charts 带 changed 参数时只返回依赖该输入的视图
func (s *Server) charts(w http.ResponseWriter, r *http.Request) {
	specs, ok := s.dispatch(w, r)
	if !ok {
		return
	}
	options := make(map[string]interface{}, len(specs))
	for _, spec := range specs {
		options[spec.ID] = EChartsOptions(spec)
	}
	s.writeJSON(w, r, options)
}

func (s *Server) specs(w http.ResponseWriter, r *http.Request) {
	specs, ok := s.dispatch(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, specs)
}

func (s *Server) chartPNG(w http.ResponseWriter, r *http.Request) {
	_, sel, ok := s.selection(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	spec, err := s.binder.Build(id, sel)
	if err != nil {
		s.httpError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", ErrUnknownChart, id))
		return
	}

	var buf bytes.Buffer
	if err := RenderPNG(&buf, spec); err != nil {
		s.httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	table, sel, ok := s.selection(w, r)
	if !ok {
		return
	}

	sub := table.Filter(sel.Region, sel.Commodity)
	var buf bytes.Buffer
	if err := s.exporter.WriteTo(&buf, sub.Frame()); err != nil {
		s.httpError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("view exported",
		zap.String("region", sel.Region),
		zap.String("commodity", sel.Commodity),
		zap.Int("rows", sub.Len()))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="commodity_production.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// logs 实时输出日志
func (s *Server) logs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for {
		select {
		case msg := <-logChan:
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) ([]processor.ChartSpec, bool) {
	_, sel, ok := s.selection(w, r)
	if !ok {
		return nil, false
	}

	changed := r.URL.Query()["changed"]
	if len(changed) == 0 {
		specs, err := s.binder.Render(sel)
		if err != nil {
			s.httpError(w, r, http.StatusServiceUnavailable, err)
			return nil, false
		}
		return specs, true
	}

	inputs := make([]processor.Input, 0, len(changed))
	for _, c := range changed {
		in, err := processor.ParseInput(c)
		if err != nil {
			s.httpError(w, r, http.StatusBadRequest, err)
			return nil, false
		}
		inputs = append(inputs, in)
	}
	specs, err := s.binder.Update(sel, inputs...)
	if err != nil {
		s.httpError(w, r, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return specs, true
}

// selection 读取当前快照和查询参数中的选择
func (s *Server) selection(w http.ResponseWriter, r *http.Request) (*processor.Table, processor.Selection, bool) {
	table := s.store.Get()
	if table == nil {
		s.httpError(w, r, http.StatusServiceUnavailable, processor.ErrNoSnapshot)
		return nil, processor.Selection{}, false
	}
	q := r.URL.Query()
	sel := processor.Selection{Region: q.Get("region"), Commodity: q.Get("commodity")}
	return table, sel.Normalize(table.AllLabel()), true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.httpError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (s *Server) httpError(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Int("status", code),
		zap.Error(err))
	http.Error(w, err.Error(), code)
}

// recoverMiddleware 单个请求出错只影响该请求
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.httpError(w, r, http.StatusInternalServerError, fmt.Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
