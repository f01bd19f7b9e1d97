package config

// DefaultConfigYAML 内置默认配置，可被外部配置文件和环境变量覆盖
var DefaultConfigYAML = []byte(`server:
  port: ":8080"
  mode: "debug"

database:
  host: "127.0.0.1"
  port: "3306"
  username: "ledger"
  password: "ledger"
  dbname: "ledger"
  charset: "utf8mb4"

jwt:
  secret: "change-me-in-production"
  expire_hours: 24

redis:
  enabled: false
  addr: "127.0.0.1:6379"
  password: ""
  db: 0
  ttl_seconds: 60
`)
