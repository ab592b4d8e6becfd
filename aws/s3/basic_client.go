package s3

import (
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

const listPageSize = 1000

// NewBasicClient creates a ReadClient for bucket using the default AWS credential chain.
func NewBasicClient(bucket, region string) (ReadClient, error) {
	awsConfig := aws.NewConfig()
	awsConfig.Region = aws.String(region)
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	return NewBasicClientWithAPI(bucket, region, s3.New(sess)), nil
}

// NewBasicClientWithAPI creates a ReadClient on top of the supplied S3 API implementation.
func NewBasicClientWithAPI(bucket, region string, api s3iface.S3API) ReadClient {
	return &basicClient{
		bucket: bucket,
		region: region,
		api:    api,
	}
}

type basicClient struct {
	region string
	bucket string
	api    s3iface.S3API
}

func (s *basicClient) List(prefix string, max int) (keys []string, err error) {
	pageSize := int64(listPageSize)
	if max > 0 && max < listPageSize {
		pageSize = int64(max)
	}
	keys = make([]string, 0, pageSize)
	lastKey := ""
	for {
		params := &s3.ListObjectsInput{
			Bucket:  aws.String(s.bucket),
			Marker:  aws.String(lastKey),
			MaxKeys: aws.Int64(pageSize),
			Prefix:  aws.String(prefix),
		}
		resp, err := s.api.ListObjects(params)
		if err != nil {
			return nil, err
		}
		for _, v := range resp.Contents {
			keys = append(keys, aws.StringValue(v.Key))
			if max > 0 && len(keys) >= max { // if we have enough keys...
				return keys, nil
			}
		}
		if len(keys) > 0 {
			lastKey = keys[len(keys)-1]
		}
		if !aws.BoolValue(resp.IsTruncated) {
			break
		}
	}
	return
}

func (s *basicClient) Get(key string) ([]byte, error) {
	res, err := s.api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer res.Body.Close()
	return ioutil.ReadAll(res.Body)
}
