// Package monitoring turns a running simulation into a small web server so
// the controller state can be inspected and the clock advanced from
// outside the process.
package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	// Enables profiling endpoints.
	_ "net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"

	"github.com/Thewbi/ULX3S/sdram"
	"github.com/Thewbi/ULX3S/timing"
)

// Monitor serves the state of an engine and the controllers registered
// with it.
type Monitor struct {
	engine      *timing.Engine
	controllers []*sdram.Comp
	portNumber  int

	engineLock sync.Mutex
}

// NewMonitor creates a Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port to listen on. Ports below 1000 are
// rejected and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the monitoring server. "+
				"Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that drives the simulation.
func (m *Monitor) RegisterEngine(e *timing.Engine) {
	m.engine = e
}

// RegisterController registers a controller to be monitored.
func (m *Monitor) RegisterController(c *sdram.Comp) {
	m.controllers = append(m.controllers, c)
}

// StartServer starts serving and opens the state page in a browser.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/run/{cycles}", m.run)
	r.HandleFunc("/api/controllers", m.listControllers)
	r.HandleFunc("/api/controller/{name}", m.controllerState)
	r.HandleFunc("/api/resource", m.listResources)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d/api/controllers",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		dieOnErr(http.Serve(listener, nil))
	}()

	_ = browser.OpenURL(url)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%d}", m.engine.Now())
}

func (m *Monitor) run(w http.ResponseWriter, r *http.Request) {
	cycles, err := strconv.ParseUint(mux.Vars(r)["cycles"], 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	m.engineLock.Lock()
	m.engine.RunCycles(cycles)
	m.engineLock.Unlock()

	m.now(w, r)
}

func (m *Monitor) listControllers(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.controllers))
	for _, c := range m.controllers {
		names = append(names, c.Name())
	}

	dieOnErr(json.NewEncoder(w).Encode(names))
}

type controllerStateRsp struct {
	Name             string `json:"name"`
	InitState        string `json:"init_state"`
	Ready            bool   `json:"ready"`
	QueuedRequests   int    `json:"queued_requests"`
	InflightRequests int    `json:"inflight_requests"`
	QueuedCommands   int    `json:"queued_commands"`
	RefreshDeadline  uint64 `json:"refresh_deadline"`
	Fault            string `json:"fault,omitempty"`
}

func (m *Monitor) controllerState(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	c := m.findControllerOr404(w, name)
	if c == nil {
		return
	}

	rsp := controllerStateRsp{
		Name:             c.Name(),
		InitState:        c.InitState(),
		Ready:            c.Ready(),
		QueuedRequests:   c.QueuedRequests(),
		InflightRequests: c.InflightRequests(),
		QueuedCommands:   c.QueuedCommands(),
		RefreshDeadline:  uint64(c.NextRefreshDeadline()),
	}

	if err := c.Fault(); err != nil {
		rsp.Fault = err.Error()
	}

	dieOnErr(json.NewEncoder(w).Encode(rsp))
}

func (m *Monitor) findControllerOr404(
	w http.ResponseWriter,
	name string,
) *sdram.Comp {
	for _, c := range m.controllers {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Controller not found"))
	dieOnErr(err)

	return nil
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	}

	dieOnErr(json.NewEncoder(w).Encode(rsp))
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
