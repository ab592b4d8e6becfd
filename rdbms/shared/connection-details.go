package shared

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/relloyd/starpipe/constants"
	"github.com/xo/dburl"
)

// ConnectionDetails holds credentials for the warehouse connection.
type ConnectionDetails struct {
	Type     string `errorTxt:"database type" mandatory:"yes"`
	Host     string `errorTxt:"database host" mandatory:"yes"`
	Port     int    `errorTxt:"database port" mandatory:"yes"`
	DbName   string `errorTxt:"database name" mandatory:"yes"`
	User     string `errorTxt:"database user" mandatory:"yes"`
	Password string `errorTxt:"database password" mandatory:"yes"`
	SslMode  string `errorTxt:"database sslmode"`
}

// Url returns the connection as a postgres:// URL including the password.
// Use String() for anything that is logged.
func (c ConnectionDetails) Url() string {
	u := url.URL{
		Scheme: constants.ConnectionTypePostgres,
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.DbName,
	}
	sslMode := c.SslMode
	if sslMode == "" {
		sslMode = constants.DefaultSslMode
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Parse returns the dburl form of the connection, which supplies the driver name and DSN.
func (c ConnectionDetails) Parse() (*dburl.URL, error) {
	u, err := dburl.Parse(c.Url())
	if err != nil {
		return nil, fmt.Errorf("error parsing connection URL for host %q: %w", c.Host, err)
	}
	return u, nil
}

// String redacts the password and pretty-prints the connection.
func (c ConnectionDetails) String() string {
	u, err := c.Parse()
	if err != nil {
		return fmt.Sprintf("type = %v; host = %v (unparseable)", c.Type, c.Host)
	}
	return fmt.Sprintf("type = %v; url = %v", c.Type, u.Redacted())
}
