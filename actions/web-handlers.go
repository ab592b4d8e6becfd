package actions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/relloyd/starpipe/logger"
	"github.com/relloyd/starpipe/pipeline"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseRunList struct {
	Status WebServerResponse    `json:"status"`
	Runs   []pipeline.RunStatus `json:"runs"`
}

type ResponseRunStatus struct {
	Status    WebServerResponse  `json:"status"`
	Message   string             `json:"message"`
	RunStatus pipeline.RunStatus `json:"run"`
}

type ResponseRunStop struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	RunId   string            `json:"runId"`
}

type ResponseRunLaunch struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	RunId   string            `json:"runId"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // a stop is already pending.
		}
		respond(log, w, ResponseSimple{ServerStatus: Okay})
	}
}

// GetHandlerRunLaunch starts a run in the background.
// The body is an optional JSON RunRequest; an empty body runs the full pipeline.
func GetHandlerRunLaunch(log logger.Logger, runs *runRegistry, prepare func(req RunRequest) (*pipelineRun, error)) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := ioutil.ReadAll(r.Body)
		if err != nil {
			logAndRespond(log, err, w, http.StatusBadRequest,
				ResponseRunLaunch{Status: Error, Message: fmt.Sprintf("error reading request: %v", err)})
			return
		}
		req := RunRequest{}
		if len(b) > 0 {
			if err = json.Unmarshal(b, &req); err != nil {
				logAndRespond(log, err, w, http.StatusBadRequest,
					ResponseRunLaunch{Status: Error, Message: fmt.Sprintf("error unmarshalling JSON: %v", err)})
				return
			}
		}
		id, err := runs.launch(log, func() (*pipelineRun, error) { return prepare(req) })
		if err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, ErrRunInProgress) {
				code = http.StatusConflict
			}
			logAndRespond(log, err, w, code,
				ResponseRunLaunch{Status: Error, Message: fmt.Sprintf("unable to start run: %v", err)})
			return
		}
		w.WriteHeader(http.StatusAccepted)
		respond(log, w, ResponseRunLaunch{Status: Okay, Message: "run launched", RunId: id})
	}
}

func GetHandlerRunList(log logger.Logger, runs *runRegistry) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseRunList{Status: Okay, Runs: runs.list()})
	}
}

func GetHandlerRunStatus(log logger.Logger, runs *runRegistry) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := runs.load(id)
		if !ok { // if the run doesn't exist...
			w.WriteHeader(http.StatusNotFound)
			log.Info("HTTP request for status of run ", id, " that doesn't exist.")
			respond(log, w, ResponseRunStatus{Status: Error, Message: fmt.Sprintf("run %v does not exist", id)})
			return
		}
		w.WriteHeader(http.StatusOK)
		respond(log, w, ResponseRunStatus{Status: Okay, RunStatus: ri.runner.Status()})
	}
}

func GetHandlerRunStop(log logger.Logger, runs *runRegistry) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := runs.load(id)
		if !ok { // if the run doesn't exist...
			w.WriteHeader(http.StatusNotFound)
			log.Info("HTTP request to stop run ", id, " that doesn't exist.")
			respond(log, w, ResponseRunStop{Status: Error, Message: "run does not exist", RunId: id})
			return
		}
		w.WriteHeader(http.StatusOK)
		if ri.runner.Status().IsFinished() { // if the run has already finished...
			log.Info("HTTP request to stop run ", id, " which has already finished.")
			respond(log, w, ResponseRunStop{Status: Error, Message: "run already ended", RunId: id})
			return
		}
		log.Info("Stopping run ", id)
		ri.cancelFn()
		respond(log, w, ResponseRunStop{Status: Okay, Message: "stopping", RunId: id})
	}
}

// logAndRespond will log the error, write the status code and r to w.
func logAndRespond(log logger.Logger, err error, w http.ResponseWriter, code int, r interface{}) {
	log.Error(err)
	w.WriteHeader(code)
	respond(log, w, r)
}

// respond will marshal i to a string and write it to w.
func respond(log logger.Logger, w http.ResponseWriter, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Panic(err)
	}
	_, err = fmt.Fprint(w, string(j))
	if err != nil {
		log.Error(err)
	}
}
