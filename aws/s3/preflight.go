package s3

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/relloyd/starpipe/logger"
)

// PreflightConfig names the S3 objects that the COPY statements will read.
type PreflightConfig struct {
	SongData    string `errorTxt:"song data URI" mandatory:"yes"`
	LogData     string `errorTxt:"log data URI" mandatory:"yes"`
	LogJsonPath string `errorTxt:"log JSONPaths URI" mandatory:"yes"`
	Region      string `errorTxt:"S3 region" mandatory:"yes"`
}

// ClientFactory returns a ReadClient for the given bucket.
type ClientFactory func(bucket, region string) (ReadClient, error)

type jsonPathsDocument struct {
	JsonPaths []string `json:"jsonpaths"`
}

// Preflight confirms the data prefixes hold objects and the JSONPaths file is usable by COPY.
func Preflight(log logger.Logger, cfg PreflightConfig, newClient ClientFactory) error {
	clients := make(map[string]ReadClient)
	getClient := func(bucket string) (ReadClient, error) {
		if c, ok := clients[bucket]; ok {
			return c, nil
		}
		c, err := newClient(bucket, cfg.Region)
		if err != nil {
			return nil, errors.Wrapf(err, "error creating S3 client for bucket %v", bucket)
		}
		clients[bucket] = c
		return c, nil
	}
	// Check each data prefix has at least one object.
	for _, uri := range []string{cfg.LogData, cfg.SongData} {
		loc, err := ParseURI(uri)
		if err != nil {
			return err
		}
		c, err := getClient(loc.Bucket)
		if err != nil {
			return err
		}
		keys, err := c.List(loc.Key, 1)
		if err != nil {
			return errors.Wrapf(err, "error listing %v", loc)
		}
		if len(keys) == 0 {
			return fmt.Errorf("no objects found under %v", loc)
		}
		log.Debug("preflight found data under ", loc)
	}
	// Check the JSONPaths document.
	loc, err := ParseURI(cfg.LogJsonPath)
	if err != nil {
		return err
	}
	c, err := getClient(loc.Bucket)
	if err != nil {
		return err
	}
	b, err := c.Get(loc.Key)
	if err == ErrKeyNotFound {
		return fmt.Errorf("JSONPaths file %v not found", loc)
	} else if err != nil {
		return errors.Wrapf(err, "error fetching JSONPaths file %v", loc)
	}
	if err = ValidateJsonPaths(b); err != nil {
		return errors.Wrapf(err, "invalid JSONPaths file %v", loc)
	}
	log.Info("S3 preflight checks passed")
	return nil
}

// ValidateJsonPaths checks that b is a JSON document with a non-empty jsonpaths array.
func ValidateJsonPaths(b []byte) error {
	doc := jsonPathsDocument{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if len(doc.JsonPaths) == 0 {
		return fmt.Errorf("jsonpaths array is missing or empty")
	}
	for idx, p := range doc.JsonPaths {
		if p == "" {
			return fmt.Errorf("jsonpaths entry %v is empty", idx)
		}
	}
	return nil
}
