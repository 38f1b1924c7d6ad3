package main

import (
	"flag"
	"log"
)

// DBConfig wraps up all of the DB configuration
type DBConfig struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

// SMTPConfig wraps up all of the smpt configuration
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	Sender   string
	FakeSMTP bool
}

// ArchivesSpaceConfig contains the API endpoint and credentials for ArchivesSpace
type ArchivesSpaceConfig struct {
	API  string
	User string
	Pass string
}

// DOMConfig holds the institution specific settings for digital object creation
type DOMConfig struct {
	IDPrefix  string
	LinkTitle string
}

// S3Config contains settings for archiving run output to an S3 bucket
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
}

// ServiceConfig defines all of the digital object manager configuration parameters
type ServiceConfig struct {
	Port          int
	ArchivesSpace ArchivesSpaceConfig
	DOM           DOMConfig
	DB            DBConfig
	SMTP          SMTPConfig
	S3            S3Config
	JWTKey        string
}

// LoadConfiguration will load the service configuration from the commandline
// and return a pointer to it. Any failures are fatal.
func LoadConfiguration() *ServiceConfig {
	log.Printf("INFO: loading configuration...")
	var cfg ServiceConfig
	flag.IntVar(&cfg.Port, "port", 8080, "API service port (default 8080)")
	flag.StringVar(&cfg.JWTKey, "jwtkey", "", "JWT signature key. Access control is disabled when blank")

	// ArchivesSpace
	flag.StringVar(&cfg.ArchivesSpace.API, "asapi", "", "ArchivesSpace API URL. Looked up in external_systems when blank")
	flag.StringVar(&cfg.ArchivesSpace.User, "asuser", "", "ArchivesSpace user")
	flag.StringVar(&cfg.ArchivesSpace.Pass, "aspass", "", "ArchivesSpace password")

	// Digital object manager
	flag.StringVar(&cfg.DOM.IDPrefix, "doprefix", "", "Prefix added to new digital object identifiers")
	flag.StringVar(&cfg.DOM.LinkTitle, "linktitle", "Digital Object", "Title of external document handle links")

	// S3
	flag.StringVar(&cfg.S3.Bucket, "s3bucket", "", "S3 bucket for run archives. Archiving is disabled when blank")
	flag.StringVar(&cfg.S3.Region, "s3region", "us-east-1", "S3 region")
	flag.StringVar(&cfg.S3.Endpoint, "s3endpoint", "", "S3 endpoint override")

	// SMTP
	flag.BoolVar(&cfg.SMTP.FakeSMTP, "stubsmtp", false, "Log email insted of sending (dev mode)")
	flag.StringVar(&cfg.SMTP.Host, "smtphost", "", "SMTP Host")
	flag.IntVar(&cfg.SMTP.Port, "smtpport", 0, "SMTP Port")
	flag.StringVar(&cfg.SMTP.User, "smtpuser", "", "SMTP User")
	flag.StringVar(&cfg.SMTP.Pass, "smtppass", "", "SMTP Password")
	flag.StringVar(&cfg.SMTP.Sender, "smtpsender", "digitalservices@virginia.edu", "SMTP sender email")

	// DB connection params
	flag.StringVar(&cfg.DB.Host, "dbhost", "", "Database host. Job tracking is disabled when blank")
	flag.IntVar(&cfg.DB.Port, "dbport", 3306, "Database port")
	flag.StringVar(&cfg.DB.Name, "dbname", "", "Database name")
	flag.StringVar(&cfg.DB.User, "dbuser", "", "Database user")
	flag.StringVar(&cfg.DB.Pass, "dbpass", "", "Database password")

	flag.Parse()

	if cfg.ArchivesSpace.User == "" {
		log.Fatal("Parameter asuser is required")
	}
	if cfg.ArchivesSpace.Pass == "" {
		log.Fatal("Parameter aspass is required")
	}
	if cfg.DB.Host != "" {
		if cfg.DB.Name == "" {
			log.Fatal("Parameter dbname is required")
		}
		if cfg.DB.User == "" {
			log.Fatal("Parameter dbuser is required")
		}
		if cfg.DB.Pass == "" {
			log.Fatal("Parameter dbpass is required")
		}
	} else if cfg.ArchivesSpace.API == "" {
		log.Fatal("Parameter asapi is required when no database is configured")
	}

	log.Printf("[CONFIG] port          = [%d]", cfg.Port)
	log.Printf("[CONFIG] asapi         = [%s]", cfg.ArchivesSpace.API)
	log.Printf("[CONFIG] asuser        = [%s]", cfg.ArchivesSpace.User)
	log.Printf("[CONFIG] doprefix      = [%s]", cfg.DOM.IDPrefix)
	log.Printf("[CONFIG] linktitle     = [%s]", cfg.DOM.LinkTitle)
	if cfg.DB.Host != "" {
		log.Printf("[CONFIG] dbhost        = [%s]", cfg.DB.Host)
		log.Printf("[CONFIG] dbport        = [%d]", cfg.DB.Port)
		log.Printf("[CONFIG] dbname        = [%s]", cfg.DB.Name)
		log.Printf("[CONFIG] dbuser        = [%s]", cfg.DB.User)
	} else {
		log.Printf("[CONFIG] dbhost        = [] job tracking disabled")
	}
	if cfg.S3.Bucket != "" {
		log.Printf("[CONFIG] s3bucket      = [%s]", cfg.S3.Bucket)
		log.Printf("[CONFIG] s3region      = [%s]", cfg.S3.Region)
		log.Printf("[CONFIG] s3endpoint    = [%s]", cfg.S3.Endpoint)
	}
	if cfg.JWTKey == "" {
		log.Printf("[CONFIG] jwtkey        = [] access control disabled")
	}

	if cfg.SMTP.FakeSMTP {
		log.Printf("[CONFIG] fakesmtp      = [true]")
	} else {
		log.Printf("[CONFIG] smtphost      = [%s]", cfg.SMTP.Host)
		log.Printf("[CONFIG] smtpport      = [%d]", cfg.SMTP.Port)
		log.Printf("[CONFIG] smtpuser      = [%s]", cfg.SMTP.User)
		log.Printf("[CONFIG] smtpsender    = [%s]", cfg.SMTP.Sender)
	}

	return &cfg
}
