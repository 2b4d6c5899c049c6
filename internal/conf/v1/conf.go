package v1

// Bootstrap 是服务的完整配置，由 viper 读取 YAML 后按 json tag 解码
type Bootstrap struct {
	Server   *Server   `json:"server"`
	Data     *Data     `json:"data"`
	Auth     *Auth     `json:"auth"`
	Log      *Log      `json:"log"`
	Trace    *Trace    `json:"trace"`
	Registry *Registry `json:"registry"`
}

type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Addr string `json:"addr"`
	// 对外公布的地址，供注册中心使用
	AdvertiseHost string `json:"advertise_host"`
	AdvertisePort int32  `json:"advertise_port"`
}

type Data struct {
	Database   *Data_Database   `json:"database"`
	Redis      *Data_Redis      `json:"redis"`
	NonceCache *Data_NonceCache `json:"nonce_cache"`
}

type Data_Database struct {
	Host        string `json:"host"`
	Port        int32  `json:"port"`
	User        string `json:"user"`
	Password    string `json:"password"`
	DbName      string `json:"db_name"`
	SslMode     string `json:"ssl_mode"`
	Timezone    string `json:"timezone"`
	AutoMigrate bool   `json:"auto_migrate"`
}

type Data_Redis struct {
	Host         string `json:"host"`
	Port         int32  `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	Db           int32  `json:"db"`
	DialTimeout  int64  `json:"dial_timeout"`
	ReadTimeout  int64  `json:"read_timeout"`
	WriteTimeout int64  `json:"write_timeout"`
	PoolSize     int32  `json:"pool_size"`
	MinIdleConns int32  `json:"min_idle_conns"`
}

// Data_NonceCache 选择 nonce 缓存后端: redis 或 memory
type Data_NonceCache struct {
	Driver string `json:"driver"`
	// memory 后端的最大条目数
	Size int32 `json:"size"`
}

type Auth struct {
	NonceMinLength        int32  `json:"nonce_min_length"`
	ValidityWindowSeconds int64  `json:"validity_window_seconds"`
	NonceAlphabet         string `json:"nonce_alphabet"`
	// 新建用户时生成的 secret 长度
	SecretLength int32 `json:"secret_length"`
}

type Log struct {
	Level    string `json:"level"`
	Format   string `json:"format"`
	Incoming bool   `json:"incoming"`
	Outgoing bool   `json:"outgoing"`
}

type Trace struct {
	Enabled     bool    `json:"enabled"`
	Endpoint    string  `json:"endpoint"`
	Insecure    bool    `json:"insecure"`
	SampleRatio float64 `json:"sample_ratio"`
}

type Registry struct {
	Consul *Registry_Consul `json:"consul"`
}

type Registry_Consul struct {
	Enabled             bool   `json:"enabled"`
	Address             string `json:"address"`
	Scheme              string `json:"scheme"`
	Token               string `json:"token"`
	HealthCheckInterval int64  `json:"health_check_interval"`
}
