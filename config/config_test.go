package config

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validIni = `
[DWH]
DB_ENDPOINT = dwhcluster.abc123.us-west-2.redshift.amazonaws.com
DWH_DB_NAME = dwh
DWH_DB_USER = dwhuser
DWH_DB_PASSWORD = Passw0rd
DWH_PORT = 5439

[IAM_ROLE]
ARN = arn:aws:iam::123456789012:role/dwhRole

[S3]
LOG_DATA = s3://udacity-dend/log_data
LOG_JSONPATH = s3://udacity-dend/log_json_path.json
SONG_DATA = s3://udacity-dend/song_data
`

func TestLoadBytes(t *testing.T) {
	c, err := LoadBytes("dwh.cfg", []byte(validIni))
	if err != nil {
		t.Fatal(err)
	}
	if c.Warehouse.Port != 5439 {
		t.Fatalf("expected port 5439; got %v", c.Warehouse.Port)
	}
	if c.S3.Region != "us-west-2" {
		t.Fatalf("expected default region; got %q", c.S3.Region)
	}
	if c.Warehouse.SslMode != "require" {
		t.Fatalf("expected default sslmode; got %q", c.Warehouse.SslMode)
	}
	if c.Role.Arn != "arn:aws:iam::123456789012:role/dwhRole" {
		t.Fatalf("unexpected ARN %q", c.Role.Arn)
	}
	if strings.Contains(c.String(), "Passw0rd") {
		t.Fatal("password leaked by String()")
	}
	conn := c.Connection()
	if conn.Host != c.Warehouse.Endpoint || conn.Password != "Passw0rd" {
		t.Fatalf("unexpected connection details %v", conn)
	}
}

func TestLoadBytesKeepsCommentCharsInValues(t *testing.T) {
	for _, pwd := range []string{"Passw0rd#1", "Pa;ssw0rd", "a ; b # c"} {
		ini := strings.Replace(validIni, "DWH_DB_PASSWORD = Passw0rd", "DWH_DB_PASSWORD = "+pwd, 1)
		ini = "; a whole-line comment\n# another one\n" + ini
		c, err := LoadBytes("dwh.cfg", []byte(ini))
		if err != nil {
			t.Fatal(err)
		}
		if c.Warehouse.Password != pwd {
			t.Fatalf("expected password %q; got %q", pwd, c.Warehouse.Password)
		}
	}
}

func TestLoadReadsFileWithCommentCharsInValues(t *testing.T) {
	dir, err := ioutil.TempDir("", "starpipe")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	fileName := filepath.Join(dir, "dwh.cfg")
	ini := strings.Replace(validIni, "DWH_DB_PASSWORD = Passw0rd", "DWH_DB_PASSWORD = Passw0rd#1", 1)
	if err = ioutil.WriteFile(fileName, []byte(ini), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(Options{FileName: fileName})
	if err != nil {
		t.Fatal(err)
	}
	if c.Warehouse.Password != "Passw0rd#1" {
		t.Fatalf("expected full password; got %q", c.Warehouse.Password)
	}
}

func TestLoadBytesKeysAreCaseInsensitive(t *testing.T) {
	lower := strings.Replace(validIni, "DWH_DB_NAME", "dwh_db_name", 1)
	c, err := LoadBytes("dwh.cfg", []byte(lower))
	if err != nil {
		t.Fatal(err)
	}
	if c.Warehouse.DbName != "dwh" {
		t.Fatalf("expected dwh; got %q", c.Warehouse.DbName)
	}
}

func TestLoadBytesMissingKey(t *testing.T) {
	missing := strings.Replace(validIni, "ARN = arn:aws:iam::123456789012:role/dwhRole", "", 1)
	_, err := LoadBytes("dwh.cfg", []byte(missing))
	k := KeyNotFoundError{}
	if !errors.As(err, &k) {
		t.Fatalf("expected KeyNotFoundError; got %v", err)
	}
	if k.Key() != "IAM_ROLE.ARN" {
		t.Fatalf("expected key IAM_ROLE.ARN; got %q", k.Key())
	}
}

func TestLoadBytesValidation(t *testing.T) {
	cases := map[string][2]string{
		"bad port":  {"DWH_PORT = 5439", "DWH_PORT = 70000"},
		"empty":     {"DWH_DB_USER = dwhuser", "DWH_DB_USER ="},
		"not a arn": {"ARN = arn:aws:iam::123456789012:role/dwhRole", "ARN = dwhRole"},
		"not role":  {"ARN = arn:aws:iam::123456789012:role/dwhRole", "ARN = arn:aws:iam::123456789012:user/bob"},
		"bad s3":    {"LOG_DATA = s3://udacity-dend/log_data", "LOG_DATA = https://udacity-dend/log_data"},
		"port text": {"DWH_PORT = 5439", "DWH_PORT = abc"},
	}
	for name, c := range cases {
		_, err := LoadBytes("dwh.cfg", []byte(strings.Replace(validIni, c[0], c[1], 1)))
		if err == nil {
			t.Fatalf("%v: expected validation error", name)
		}
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("STARPIPE_DWH_DWH_DB_PASSWORD", "fromEnv")
	t.Setenv("STARPIPE_S3_REGION", "eu-west-1")
	c, err := LoadBytes("dwh.cfg", []byte(validIni))
	if err != nil {
		t.Fatal(err)
	}
	if c.Warehouse.Password != "fromEnv" {
		t.Fatalf("expected environment to win; got %q", c.Warehouse.Password)
	}
	if c.S3.Region != "eu-west-1" {
		t.Fatalf("expected region from environment; got %q", c.S3.Region)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load(Options{FileName: filepath.Join(t.TempDir(), "missing.cfg")})
	if !errors.As(err, &FileNotFoundError{}) {
		t.Fatalf("expected FileNotFoundError; got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "dwh.cfg")
	if err := ioutil.WriteFile(name, []byte(validIni), 0600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(Options{FileName: name})
	if err != nil {
		t.Fatal(err)
	}
	if c.Source != name {
		t.Fatalf("expected source %q; got %q", name, c.Source)
	}
}

func TestLoadTwelveFactorWithoutFile(t *testing.T) {
	env := map[string]string{
		"STARPIPE_DWH_DB_ENDPOINT":     "localhost",
		"STARPIPE_DWH_DWH_DB_NAME":     "dwh",
		"STARPIPE_DWH_DWH_DB_USER":     "dwhuser",
		"STARPIPE_DWH_DWH_DB_PASSWORD": "secret",
		"STARPIPE_DWH_DWH_PORT":        "5439",
		"STARPIPE_IAM_ROLE_ARN":        "arn:aws:iam::123456789012:role/dwhRole",
		"STARPIPE_S3_SONG_DATA":        "s3://udacity-dend/song_data",
		"STARPIPE_S3_LOG_DATA":         "s3://udacity-dend/log_data",
		"STARPIPE_S3_LOG_JSONPATH":     "s3://udacity-dend/log_json_path.json",
		"STARPIPE_DWH_DWH_SSL_MODE":    "disable",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	c, err := Load(Options{FileName: filepath.Join(t.TempDir(), "absent.cfg"), TwelveFactorMode: true})
	if err != nil {
		t.Fatal(err)
	}
	if c.Warehouse.SslMode != "disable" || c.Warehouse.Endpoint != "localhost" {
		t.Fatalf("unexpected config %v", c)
	}
	_ = os.Unsetenv("STARPIPE_IAM_ROLE_ARN")
	if _, err = Load(Options{FileName: filepath.Join(t.TempDir(), "absent.cfg"), TwelveFactorMode: true}); err == nil {
		t.Fatal("expected error for missing ARN")
	}
}
